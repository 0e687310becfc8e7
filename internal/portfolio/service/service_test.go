package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"eam/internal/history"
	"eam/internal/platform/logger"
	"eam/internal/platform/metrics"
	"eam/internal/portfolio/models"
	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/requestcontext"
)

type PortfolioSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	portfolio *Portfolio
	history   *history.Recorder
	metrics   *metrics.Metrics
}

func TestPortfolioSuite(t *testing.T) {
	suite.Run(t, new(PortfolioSuite))
}

func (s *PortfolioSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithPrincipal(s.ctx, requestcontext.Principal{Username: "editor1", Role: "editor"})
	s.history = history.NewRecorder(history.NewInMemoryStore(), history.WithLogger(logger.Discard()))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.portfolio = NewPortfolio(InMemoryStores(),
		WithLogger(logger.Discard()),
		WithHistory(s.history),
		WithMetrics(s.metrics),
	)
}

func (s *PortfolioSuite) later(d time.Duration) context.Context {
	return requestcontext.WithTime(s.ctx, s.now.Add(d))
}

func (s *PortfolioSuite) createApp(code string) *models.Application {
	app, err := s.portfolio.Applications.Create(s.ctx, &models.Application{Name: "App " + code, Code: code})
	s.Require().NoError(err)
	return app
}

func (s *PortfolioSuite) TestCreateAssignsBookkeeping() {
	app, err := s.portfolio.Applications.Create(s.ctx, &models.Application{
		Base: models.Base{ID: uuid.New()},
		Name: "  Billing ",
		Code: "bill",
	})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, app.ID)
	s.Equal("Billing", app.Name)
	s.Equal("BILL", app.Code)
	s.Equal(models.ApplicationIdea, app.Status)
	s.Equal(s.now, app.CreatedAt)
	s.Equal(s.now, app.UpdatedAt)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RecordMutations.WithLabelValues("applications", "create")))

	found, err := s.portfolio.Applications.Get(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.Code, found.Code)
}

func (s *PortfolioSuite) TestValidation() {
	_, err := s.portfolio.Applications.Create(s.ctx, &models.Application{Code: "bad code!", Status: "unknown"})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Contains(de.Fields, "name")
	s.Contains(de.Fields, "code")
	s.Contains(de.Fields, "status")
}

func (s *PortfolioSuite) TestDuplicateCodeConflicts() {
	s.createApp("CRM")
	_, err := s.portfolio.Applications.Create(s.ctx, &models.Application{Name: "Other", Code: "crm"})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal("already in use", de.Fields["code"])
}

func (s *PortfolioSuite) TestMissingReferenceIsValidationError() {
	ghost := uuid.New()
	_, err := s.portfolio.Proposals.Create(s.ctx, &models.Proposal{Title: "Upgrade", ApplicationID: &ghost})
	s.Require().Error(err)

	var de *dErrors.Error
	s.Require().ErrorAs(err, &de)
	s.Equal(dErrors.CodeValidation, de.Code)
	s.Contains(de.Fields, "application_id")
}

func (s *PortfolioSuite) TestPartialUpdateKeepsIdentity() {
	app := s.createApp("ERP")

	updated, err := s.portfolio.Applications.Update(s.later(time.Hour), app.ID, func(a *models.Application) error {
		a.Owner = "finance"
		a.ID = uuid.New()
		a.CreatedAt = time.Time{}
		return nil
	})
	s.Require().NoError(err)
	s.Equal(app.ID, updated.ID)
	s.Equal(s.now, updated.CreatedAt)
	s.Equal(s.now.Add(time.Hour), updated.UpdatedAt)
	s.Equal("finance", updated.Owner)
	s.Equal("App ERP", updated.Name)

	entries, err := s.portfolio.Applications.History(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(history.Changed, entries[0].Change)
	s.Equal([]string{"owner"}, entries[0].ChangedFields)
	s.Equal("editor1", entries[0].ChangedBy)
}

func (s *PortfolioSuite) TestNotFound() {
	_, err := s.portfolio.Meetings.Get(s.ctx, uuid.New())
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.portfolio.Meetings.Update(s.ctx, uuid.New(), func(*models.Meeting) error { return nil })
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	s.True(dErrors.Is(s.portfolio.Meetings.Delete(s.ctx, uuid.New()), dErrors.CodeNotFound))
}

func (s *PortfolioSuite) TestDeleteNullsReferences() {
	app := s.createApp("OPS")
	meeting, err := s.portfolio.Meetings.Create(s.ctx, &models.Meeting{
		Title: "Kickoff", ScheduledAt: s.now, ApplicationID: &app.ID,
	})
	s.Require().NoError(err)
	action, err := s.portfolio.Actions.Create(s.ctx, &models.Action{
		Title: "Write minutes", ApplicationID: &app.ID, MeetingID: &meeting.ID,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.portfolio.Applications.Delete(s.ctx, app.ID))

	gotMeeting, err := s.portfolio.Meetings.Get(s.ctx, meeting.ID)
	s.Require().NoError(err)
	s.Nil(gotMeeting.ApplicationID)

	gotAction, err := s.portfolio.Actions.Get(s.ctx, action.ID)
	s.Require().NoError(err)
	s.Nil(gotAction.ApplicationID)
	s.Require().NotNil(gotAction.MeetingID)

	entries, err := s.portfolio.Applications.History(s.ctx, app.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(history.Deleted, entries[0].Change)
}

func (s *PortfolioSuite) TestListRejectsUnknownFilter() {
	_, _, err := s.portfolio.Actions.List(s.ctx, store.Query{Filters: map[string]string{"colour": "red"}})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *PortfolioSuite) TestApprovalStampsDecidedAt() {
	approval, err := s.portfolio.Approvals.Create(s.ctx, &models.Approval{Approver: "cto"})
	s.Require().NoError(err)
	s.Nil(approval.DecidedAt)

	approval, err = s.portfolio.Approvals.Update(s.later(time.Minute), approval.ID, func(a *models.Approval) error {
		a.Decision = models.DecisionApproved
		return nil
	})
	s.Require().NoError(err)
	s.Require().NotNil(approval.DecidedAt)
	s.Equal(s.now.Add(time.Minute), *approval.DecidedAt)
}

func (s *PortfolioSuite) TestApprovalRestampsChangedDecision() {
	approval, err := s.portfolio.Approvals.Create(s.ctx, &models.Approval{Approver: "cto", Decision: models.DecisionApproved})
	s.Require().NoError(err)
	s.Require().NotNil(approval.DecidedAt)

	approval, err = s.portfolio.Approvals.Update(s.later(time.Minute), approval.ID, func(a *models.Approval) error {
		a.Comment = "still fine"
		return nil
	})
	s.Require().NoError(err)
	s.Equal(s.now, *approval.DecidedAt)

	approval, err = s.portfolio.Approvals.Update(s.later(time.Hour), approval.ID, func(a *models.Approval) error {
		a.Decision = models.DecisionRejected
		return nil
	})
	s.Require().NoError(err)
	s.Equal(s.now.Add(time.Hour), *approval.DecidedAt)
}

func (s *PortfolioSuite) TestRejectedUpdateLeavesRecordUnchanged() {
	s.Run("reference pointer", func() {
		app := s.createApp("REF")
		appID := app.ID
		proposal, err := s.portfolio.Proposals.Create(s.ctx, &models.Proposal{Title: "Upgrade", ApplicationID: &appID})
		s.Require().NoError(err)

		ghost := uuid.New()
		_, err = s.portfolio.Proposals.Update(s.ctx, proposal.ID, func(p *models.Proposal) error {
			return json.Unmarshal([]byte(`{"application_id":"`+ghost.String()+`"}`), p)
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))

		found, err := s.portfolio.Proposals.Get(s.ctx, proposal.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.ApplicationID)
		s.Equal(app.ID, *found.ApplicationID)
		s.Equal(app.ID, appID)
	})

	s.Run("slice field", func() {
		meeting, err := s.portfolio.Meetings.Create(s.ctx, &models.Meeting{
			Title: "Kick-off", ScheduledAt: s.now, DurationMinutes: 30, Attendees: []string{"ana", "bo"},
		})
		s.Require().NoError(err)

		_, err = s.portfolio.Meetings.Update(s.ctx, meeting.ID, func(m *models.Meeting) error {
			return json.Unmarshal([]byte(`{"attendees":["mallory"],"title":""}`), m)
		})
		s.Require().Error(err)

		found, err := s.portfolio.Meetings.Get(s.ctx, meeting.ID)
		s.Require().NoError(err)
		s.Equal([]string{"ana", "bo"}, found.Attendees)
		s.Equal(30, found.DurationMinutes)
	})
}

func (s *PortfolioSuite) TestApprovalWorkflow() {
	proposal, err := s.portfolio.Proposals.Create(s.ctx, &models.Proposal{
		Title: "Move to cloud", Status: models.ProposalSubmitted,
	})
	s.Require().NoError(err)

	status := func() string {
		p, err := s.portfolio.Proposals.Get(s.ctx, proposal.ID)
		s.Require().NoError(err)
		return p.Status
	}
	decide := func(approver, decision string) *models.Approval {
		a, err := s.portfolio.Approvals.Create(s.ctx, &models.Approval{
			ProposalID: &proposal.ID, Approver: approver, Decision: decision,
		})
		s.Require().NoError(err)
		return a
	}

	first := decide("cfo", models.DecisionApproved)
	s.Equal(models.ProposalApproved, status())

	second := decide("cto", models.DecisionPending)
	s.Equal(models.ProposalSubmitted, status())

	_, err = s.portfolio.Approvals.Update(s.ctx, second.ID, func(a *models.Approval) error {
		a.Decision = models.DecisionRejected
		return nil
	})
	s.Require().NoError(err)
	s.Equal(models.ProposalRejected, status())

	s.Require().NoError(s.portfolio.Approvals.Delete(s.ctx, second.ID))
	s.Equal(models.ProposalApproved, status())

	s.Require().NoError(s.portfolio.Approvals.Delete(s.ctx, first.ID))
	s.Equal(models.ProposalSubmitted, status())

	entries, err := s.portfolio.Proposals.History(s.ctx, proposal.ID)
	s.Require().NoError(err)
	s.Len(entries, 6)
}

func (s *PortfolioSuite) TestWorkflowLeavesDraftAlone() {
	proposal, err := s.portfolio.Proposals.Create(s.ctx, &models.Proposal{Title: "Idea"})
	s.Require().NoError(err)
	_, err = s.portfolio.Approvals.Create(s.ctx, &models.Approval{
		ProposalID: &proposal.ID, Approver: "cfo", Decision: models.DecisionApproved,
	})
	s.Require().NoError(err)

	got, err := s.portfolio.Proposals.Get(s.ctx, proposal.ID)
	s.Require().NoError(err)
	s.Equal(models.ProposalDraft, got.Status)
}

type failingHook struct{}

func (failingHook) AfterSave(context.Context, *models.Application, *models.Application) error {
	return dErrors.New(dErrors.CodeInternal, "hook failed")
}

func (failingHook) AfterDelete(context.Context, *models.Application) error { return nil }

func (s *PortfolioSuite) withOutbox() chan history.Entry {
	outbox := make(chan history.Entry, 16)
	recorder := history.NewRecorder(history.NewInMemoryStore(),
		history.WithOutbox(outbox), history.WithLogger(logger.Discard()))
	s.portfolio = NewPortfolio(InMemoryStores(), WithLogger(logger.Discard()), WithHistory(recorder))
	return outbox
}

func (s *PortfolioSuite) TestFailedUnitOfWorkPublishesNothing() {
	outbox := s.withOutbox()
	s.portfolio.Applications.AddHook(failingHook{})

	_, err := s.portfolio.Applications.Create(s.ctx, &models.Application{Name: "CRM", Code: "CRM"})
	s.Require().Error(err)
	s.Empty(outbox)
}

func (s *PortfolioSuite) TestWorkflowPublishesAfterOuterCommit() {
	outbox := s.withOutbox()
	proposal, err := s.portfolio.Proposals.Create(s.ctx, &models.Proposal{
		Title: "Move to cloud", Status: models.ProposalSubmitted,
	})
	s.Require().NoError(err)
	s.Require().Len(outbox, 1)
	<-outbox

	_, err = s.portfolio.Approvals.Create(s.ctx, &models.Approval{
		ProposalID: &proposal.ID, Approver: "cfo", Decision: models.DecisionApproved,
	})
	s.Require().NoError(err)
	s.Require().Len(outbox, 2)

	first, second := <-outbox, <-outbox
	s.Equal(string(models.KindApproval), first.Kind)
	s.Equal(history.Created, first.Change)
	s.Equal(string(models.KindProposal), second.Kind)
	s.Equal(history.Changed, second.Change)
}

func TestResolveProposalStatus(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		decisions []string
		want      string
	}{
		{"draft untouched", models.ProposalDraft, []string{models.DecisionRejected}, models.ProposalDraft},
		{"withdrawn untouched", models.ProposalWithdrawn, []string{models.DecisionApproved}, models.ProposalWithdrawn},
		{"any rejection rejects", models.ProposalSubmitted, []string{models.DecisionApproved, models.DecisionRejected}, models.ProposalRejected},
		{"all approved approves", models.ProposalSubmitted, []string{models.DecisionApproved, models.DecisionApproved}, models.ProposalApproved},
		{"pending reopens approved", models.ProposalApproved, []string{models.DecisionApproved, models.DecisionPending}, models.ProposalSubmitted},
		{"no approvals reopens rejected", models.ProposalRejected, nil, models.ProposalSubmitted},
		{"no approvals keeps submitted", models.ProposalSubmitted, nil, models.ProposalSubmitted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveProposalStatus(tc.current, tc.decisions); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
