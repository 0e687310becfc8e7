package service

import (
	"database/sql"

	"eam/internal/portfolio/models"
	"eam/internal/portfolio/store"
	"eam/pkg/platform/tx"
)

type (
	ApplicationService = Service[models.Application, *models.Application]
	ProposalService    = Service[models.Proposal, *models.Proposal]
	ApprovalService    = Service[models.Approval, *models.Approval]
	EstimationService  = Service[models.Estimation, *models.Estimation]
	MeetingService     = Service[models.Meeting, *models.Meeting]
	ActionService      = Service[models.Action, *models.Action]
)

// Stores bundles one store per portfolio kind.
type Stores struct {
	Applications Store[models.Application, *models.Application]
	Proposals    Store[models.Proposal, *models.Proposal]
	Approvals    Store[models.Approval, *models.Approval]
	Estimations  Store[models.Estimation, *models.Estimation]
	Meetings     Store[models.Meeting, *models.Meeting]
	Actions      Store[models.Action, *models.Action]
}

func InMemoryStores() Stores {
	return Stores{
		Applications: store.NewInMemory[models.Application](),
		Proposals:    store.NewInMemory[models.Proposal](),
		Approvals:    store.NewInMemory[models.Approval](),
		Estimations:  store.NewInMemory[models.Estimation](),
		Meetings:     store.NewInMemory[models.Meeting](),
		Actions:      store.NewInMemory[models.Action](),
	}
}

func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Applications: store.NewPostgres[models.Application, *models.Application](db, store.ApplicationTable),
		Proposals:    store.NewPostgres[models.Proposal, *models.Proposal](db, store.ProposalTable),
		Approvals:    store.NewPostgres[models.Approval, *models.Approval](db, store.ApprovalTable),
		Estimations:  store.NewPostgres[models.Estimation, *models.Estimation](db, store.EstimationTable),
		Meetings:     store.NewPostgres[models.Meeting, *models.Meeting](db, store.MeetingTable),
		Actions:      store.NewPostgres[models.Action, *models.Action](db, store.ActionTable),
	}
}

// Portfolio is the set of wired services sharing one registry and one
// unit-of-work runner.
type Portfolio struct {
	Registry     *Registry
	Applications *ApplicationService
	Proposals    *ProposalService
	Approvals    *ApprovalService
	Estimations  *EstimationService
	Meetings     *MeetingService
	Actions      *ActionService
}

func NewPortfolio(stores Stores, opts ...Option) *Portfolio {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tx == nil {
		opts = append(opts, WithTxRunner(tx.NewLockRunner()))
	}

	registry := NewRegistry()
	p := &Portfolio{
		Registry:     registry,
		Applications: New(stores.Applications, registry, opts...),
		Proposals:    New(stores.Proposals, registry, opts...),
		Approvals:    New(stores.Approvals, registry, opts...),
		Estimations:  New(stores.Estimations, registry, opts...),
		Meetings:     New(stores.Meetings, registry, opts...),
		Actions:      New(stores.Actions, registry, opts...),
	}
	p.Approvals.AddHook(NewProposalWorkflow(p.Approvals, p.Proposals, cfg.logger))
	return p
}
