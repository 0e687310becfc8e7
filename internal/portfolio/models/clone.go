package models

import "slices"

// Clone methods return deep copies: no pointer or slice is shared with the
// receiver, so a copy can be decoded into or mutated freely.

func (a *Application) Clone() *Application {
	c := *a
	c.GitLabProjectID = clonePtr(a.GitLabProjectID)
	return &c
}

func (p *Proposal) Clone() *Proposal {
	c := *p
	c.ApplicationID = clonePtr(p.ApplicationID)
	return &c
}

func (a *Approval) Clone() *Approval {
	c := *a
	c.ProposalID = clonePtr(a.ProposalID)
	c.DecidedAt = clonePtr(a.DecidedAt)
	return &c
}

func (e *Estimation) Clone() *Estimation {
	c := *e
	c.ApplicationID = clonePtr(e.ApplicationID)
	c.ProposalID = clonePtr(e.ProposalID)
	return &c
}

func (m *Meeting) Clone() *Meeting {
	c := *m
	c.ApplicationID = clonePtr(m.ApplicationID)
	if m.Attendees != nil {
		c.Attendees = slices.Clone(m.Attendees)
	}
	return &c
}

func (a *Action) Clone() *Action {
	c := *a
	c.ApplicationID = clonePtr(a.ApplicationID)
	c.MeetingID = clonePtr(a.MeetingID)
	c.DueDate = clonePtr(a.DueDate)
	return &c
}

// clonePtr copies the value behind v. V must not itself hold pointers.
func clonePtr[V any](v *V) *V {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
