package models

import (
	"strings"

	"github.com/google/uuid"
)

// Proposal states.
const (
	ProposalDraft     = "draft"
	ProposalSubmitted = "submitted"
	ProposalApproved  = "approved"
	ProposalRejected  = "rejected"
	ProposalWithdrawn = "withdrawn"
)

// Proposal is a change or investment request against an application.
type Proposal struct {
	Base
	ApplicationID *uuid.UUID `json:"application_id"`
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description" validate:"max=8000"`
	SubmittedBy   string     `json:"submitted_by" validate:"max=200"`
	Status        string     `json:"status" validate:"oneof=draft submitted approved rejected withdrawn"`
	Budget        float64    `json:"budget" validate:"gte=0"`
}

func (p *Proposal) Kind() Kind    { return KindProposal }
func (p *Proposal) Label() string { return p.Title }

func (p *Proposal) References() []Reference {
	return []Reference{{Field: "application_id", Kind: KindApplication, Target: &p.ApplicationID}}
}

func (p *Proposal) FilterValue(key string) (string, bool) {
	switch key {
	case "status":
		return p.Status, true
	case "application_id":
		return uuidString(p.ApplicationID), true
	case "submitted_by":
		return p.SubmittedBy, true
	}
	return "", false
}

func (p *Proposal) SearchText() string {
	return joinSearch(p.Title, p.Description, p.SubmittedBy)
}

func (p *Proposal) UniqueKey() (string, string) { return "", "" }

func (p *Proposal) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.SubmittedBy = strings.TrimSpace(p.SubmittedBy)
	normalizeRef(&p.ApplicationID)
	if p.Status == "" {
		p.Status = ProposalDraft
	}
}

// Decided reports whether the approval workflow has settled the proposal.
func (p *Proposal) Decided() bool {
	return p.Status == ProposalApproved || p.Status == ProposalRejected
}
