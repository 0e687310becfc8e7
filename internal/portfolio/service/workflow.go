package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"eam/internal/portfolio/models"
	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/requestcontext"
)

type ApprovalLister interface {
	List(ctx context.Context, q store.Query) ([]*models.Approval, int, error)
}

type ProposalUpdater interface {
	Update(ctx context.Context, id uuid.UUID, apply func(*models.Proposal) error) (*models.Proposal, error)
}

var errUnchanged = errors.New("proposal status unchanged")

// ProposalWorkflow keeps a proposal's status in line with its approvals.
// It runs as a Hook on the approvals service.
type ProposalWorkflow struct {
	approvals ApprovalLister
	proposals ProposalUpdater
	logger    *slog.Logger
}

func NewProposalWorkflow(approvals ApprovalLister, proposals ProposalUpdater, logger *slog.Logger) *ProposalWorkflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProposalWorkflow{approvals: approvals, proposals: proposals, logger: logger}
}

func (w *ProposalWorkflow) AfterSave(ctx context.Context, before, after *models.Approval) error {
	seen := map[uuid.UUID]bool{}
	for _, a := range []*models.Approval{before, after} {
		if a == nil || a.ProposalID == nil || seen[*a.ProposalID] {
			continue
		}
		seen[*a.ProposalID] = true
		if err := w.reconcile(ctx, *a.ProposalID); err != nil {
			return err
		}
	}
	return nil
}

func (w *ProposalWorkflow) AfterDelete(ctx context.Context, rec *models.Approval) error {
	if rec.ProposalID == nil {
		return nil
	}
	return w.reconcile(ctx, *rec.ProposalID)
}

func (w *ProposalWorkflow) reconcile(ctx context.Context, proposalID uuid.UUID) error {
	approvals, _, err := w.approvals.List(ctx, store.Query{
		Filters: map[string]string{"proposal_id": proposalID.String()},
		All:     true,
	})
	if err != nil {
		return err
	}
	decisions := make([]string, 0, len(approvals))
	for _, a := range approvals {
		decisions = append(decisions, a.Decision)
	}

	var from string
	updated, err := w.proposals.Update(ctx, proposalID, func(p *models.Proposal) error {
		next := ResolveProposalStatus(p.Status, decisions)
		if next == p.Status {
			return errUnchanged
		}
		from = p.Status
		p.Status = next
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged), dErrors.Is(err, dErrors.CodeNotFound):
		return nil
	case err != nil:
		return err
	}
	w.logger.InfoContext(ctx, "proposal status reconciled",
		"proposal_id", proposalID,
		"from", from,
		"to", updated.Status,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// ResolveProposalStatus derives a proposal's status from its approval
// decisions. Draft and withdrawn proposals are left alone.
func ResolveProposalStatus(current string, decisions []string) string {
	if current == models.ProposalDraft || current == models.ProposalWithdrawn {
		return current
	}
	approved := 0
	for _, d := range decisions {
		switch d {
		case models.DecisionRejected:
			return models.ProposalRejected
		case models.DecisionApproved:
			approved++
		}
	}
	if approved > 0 && approved == len(decisions) {
		return models.ProposalApproved
	}
	if current == models.ProposalApproved || current == models.ProposalRejected {
		return models.ProposalSubmitted
	}
	return current
}
