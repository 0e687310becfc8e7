package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pstrings "eam/pkg/platform/strings"
)

// Meeting is a steering or review meeting about an application.
type Meeting struct {
	Base
	ApplicationID   *uuid.UUID `json:"application_id"`
	Title           string     `json:"title" validate:"required,max=200"`
	ScheduledAt     time.Time  `json:"scheduled_at" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"min=1,max=1440"`
	Location        string     `json:"location" validate:"max=200"`
	Attendees       []string   `json:"attendees" validate:"max=100,dive,max=200"`
	Minutes         string     `json:"minutes" validate:"max=20000"`
}

func (m *Meeting) Kind() Kind    { return KindMeeting }
func (m *Meeting) Label() string { return m.Title }

func (m *Meeting) References() []Reference {
	return []Reference{{Field: "application_id", Kind: KindApplication, Target: &m.ApplicationID}}
}

func (m *Meeting) FilterValue(key string) (string, bool) {
	switch key {
	case "application_id":
		return uuidString(m.ApplicationID), true
	case "location":
		return m.Location, true
	}
	return "", false
}

func (m *Meeting) SearchText() string {
	return joinSearch(m.Title, m.Location, m.Minutes, strings.Join(m.Attendees, " "))
}

func (m *Meeting) UniqueKey() (string, string) { return "", "" }

func (m *Meeting) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Location = strings.TrimSpace(m.Location)
	m.Attendees = pstrings.DedupeFold(m.Attendees)
	if m.Attendees == nil {
		m.Attendees = []string{}
	}
	normalizeRef(&m.ApplicationID)
	if m.DurationMinutes == 0 {
		m.DurationMinutes = 60
	}
}
