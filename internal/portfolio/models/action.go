package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Action states.
const (
	ActionOpen       = "open"
	ActionInProgress = "in_progress"
	ActionDone       = "done"
	ActionCancelled  = "cancelled"
)

// Action is a follow-up item, usually raised in a meeting.
type Action struct {
	Base
	ApplicationID *uuid.UUID `json:"application_id"`
	MeetingID     *uuid.UUID `json:"meeting_id"`
	Title         string     `json:"title" validate:"required,max=200"`
	Assignee      string     `json:"assignee" validate:"max=200"`
	DueDate       *time.Time `json:"due_date"`
	Status        string     `json:"status" validate:"oneof=open in_progress done cancelled"`
	Priority      string     `json:"priority" validate:"oneof=low medium high"`
}

func (a *Action) Kind() Kind    { return KindAction }
func (a *Action) Label() string { return a.Title }

func (a *Action) References() []Reference {
	return []Reference{
		{Field: "application_id", Kind: KindApplication, Target: &a.ApplicationID},
		{Field: "meeting_id", Kind: KindMeeting, Target: &a.MeetingID},
	}
}

func (a *Action) FilterValue(key string) (string, bool) {
	switch key {
	case "status":
		return a.Status, true
	case "priority":
		return a.Priority, true
	case "assignee":
		return a.Assignee, true
	case "application_id":
		return uuidString(a.ApplicationID), true
	case "meeting_id":
		return uuidString(a.MeetingID), true
	}
	return "", false
}

func (a *Action) SearchText() string {
	return joinSearch(a.Title, a.Assignee)
}

func (a *Action) UniqueKey() (string, string) { return "", "" }

func (a *Action) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	a.Assignee = strings.TrimSpace(a.Assignee)
	normalizeRef(&a.ApplicationID)
	normalizeRef(&a.MeetingID)
	if a.Status == "" {
		a.Status = ActionOpen
	}
	if a.Priority == "" {
		a.Priority = "medium"
	}
}

// Open reports whether the action still needs work.
func (a *Action) Open() bool {
	return a.Status == ActionOpen || a.Status == ActionInProgress
}

// Overdue reports whether an open action is past its due date.
func (a *Action) Overdue(now time.Time) bool {
	return a.Open() && a.DueDate != nil && a.DueDate.Before(now)
}
