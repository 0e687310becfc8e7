package models

import (
	"strings"

	"github.com/google/uuid"
)

// Estimation is an effort and cost estimate for an application or proposal.
type Estimation struct {
	Base
	ApplicationID *uuid.UUID `json:"application_id"`
	ProposalID    *uuid.UUID `json:"proposal_id"`
	Estimator     string     `json:"estimator" validate:"required,max=200"`
	EffortDays    float64    `json:"effort_days" validate:"gt=0"`
	Cost          float64    `json:"cost" validate:"gte=0"`
	Confidence    string     `json:"confidence" validate:"oneof=low medium high"`
	Notes         string     `json:"notes" validate:"max=4000"`
}

func (e *Estimation) Kind() Kind    { return KindEstimation }
func (e *Estimation) Label() string { return e.Estimator }

func (e *Estimation) References() []Reference {
	return []Reference{
		{Field: "application_id", Kind: KindApplication, Target: &e.ApplicationID},
		{Field: "proposal_id", Kind: KindProposal, Target: &e.ProposalID},
	}
}

func (e *Estimation) FilterValue(key string) (string, bool) {
	switch key {
	case "application_id":
		return uuidString(e.ApplicationID), true
	case "proposal_id":
		return uuidString(e.ProposalID), true
	case "confidence":
		return e.Confidence, true
	}
	return "", false
}

func (e *Estimation) SearchText() string {
	return joinSearch(e.Estimator, e.Notes)
}

func (e *Estimation) UniqueKey() (string, string) { return "", "" }

func (e *Estimation) Normalize() {
	e.Estimator = strings.TrimSpace(e.Estimator)
	normalizeRef(&e.ApplicationID)
	normalizeRef(&e.ProposalID)
	if e.Confidence == "" {
		e.Confidence = "medium"
	}
}
