package models

import (
	"strconv"
	"strings"
)

// Application lifecycle states.
const (
	ApplicationIdea        = "idea"
	ApplicationActive      = "active"
	ApplicationMaintenance = "maintenance"
	ApplicationRetired     = "retired"
)

// Application is a tracked enterprise application.
type Application struct {
	Base
	Name            string `json:"name" validate:"required,max=200"`
	Code            string `json:"code" validate:"required,max=40,code"`
	Description     string `json:"description" validate:"max=4000"`
	Owner           string `json:"owner" validate:"max=200"`
	Status          string `json:"status" validate:"oneof=idea active maintenance retired"`
	Criticality     string `json:"criticality" validate:"oneof=low medium high critical"`
	GitLabProjectID *int   `json:"gitlab_project_id" validate:"omitempty,gt=0"`
}

func (a *Application) Kind() Kind    { return KindApplication }
func (a *Application) Label() string { return a.Code + " - " + a.Name }

func (a *Application) References() []Reference { return nil }

func (a *Application) FilterValue(key string) (string, bool) {
	switch key {
	case "status":
		return a.Status, true
	case "criticality":
		return a.Criticality, true
	case "owner":
		return a.Owner, true
	case "gitlab_project_id":
		if a.GitLabProjectID == nil {
			return "", true
		}
		return strconv.Itoa(*a.GitLabProjectID), true
	}
	return "", false
}

func (a *Application) SearchText() string {
	return joinSearch(a.Name, a.Code, a.Description, a.Owner)
}

func (a *Application) UniqueKey() (string, string) {
	return "code", strings.ToLower(a.Code)
}

func (a *Application) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
	a.Owner = strings.TrimSpace(a.Owner)
	if a.Status == "" {
		a.Status = ApplicationIdea
	}
	if a.Criticality == "" {
		a.Criticality = "medium"
	}
}
