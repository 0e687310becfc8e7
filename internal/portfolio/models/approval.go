package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Approval decisions.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Approval is one approver's decision on a proposal.
type Approval struct {
	Base
	ProposalID *uuid.UUID `json:"proposal_id"`
	Approver   string     `json:"approver" validate:"required,max=200"`
	Decision   string     `json:"decision" validate:"oneof=pending approved rejected"`
	Comment    string     `json:"comment" validate:"max=4000"`
	DecidedAt  *time.Time `json:"decided_at"`
}

func (a *Approval) Kind() Kind    { return KindApproval }
func (a *Approval) Label() string { return a.Approver + " (" + a.Decision + ")" }

func (a *Approval) References() []Reference {
	return []Reference{{Field: "proposal_id", Kind: KindProposal, Target: &a.ProposalID}}
}

func (a *Approval) FilterValue(key string) (string, bool) {
	switch key {
	case "decision":
		return a.Decision, true
	case "proposal_id":
		return uuidString(a.ProposalID), true
	case "approver":
		return a.Approver, true
	}
	return "", false
}

func (a *Approval) SearchText() string {
	return joinSearch(a.Approver, a.Comment)
}

func (a *Approval) UniqueKey() (string, string) { return "", "" }

func (a *Approval) Normalize() {
	a.Approver = strings.TrimSpace(a.Approver)
	normalizeRef(&a.ProposalID)
	if a.Decision == "" {
		a.Decision = DecisionPending
	}
}

// Stamp keeps DecidedAt consistent with Decision. before is the stored
// version, nil on create; any change of decision re-stamps the time.
func (a *Approval) Stamp(before *Approval, now time.Time) {
	if a.Decision == DecisionPending {
		a.DecidedAt = nil
		return
	}
	if a.DecidedAt == nil || before == nil || before.Decision != a.Decision {
		a.DecidedAt = &now
	}
}
