package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eam/internal/history"
	"eam/internal/platform/logger"
	"eam/internal/portfolio/models"
	"eam/internal/portfolio/service"
	"eam/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router    chi.Router
	portfolio *service.Portfolio
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := logger.Discard()
	recorder := history.NewRecorder(history.NewInMemoryStore(), history.WithLogger(log))
	s.portfolio = service.NewPortfolio(service.InMemoryStores(),
		service.WithLogger(log),
		service.WithHistory(recorder),
	)
	views := MustViews(log)

	s.router = chi.NewRouter()
	New(s.portfolio.Applications, views, log).Register(s.router)
	New(s.portfolio.Proposals, views, log).Register(s.router)
	New(s.portfolio.Meetings, views, log).Register(s.router)
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) createApp(code string) *models.Application {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/new/",
		map[string]any{"name": "App " + code, "code": code}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[models.Application](s.T(), rr)
}

func (s *HandlerSuite) TestJSONLifecycle() {
	app := s.createApp("crm")
	s.Equal("CRM", app.Code)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID.String()+"/"))
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, "/applications/edit/"+app.ID.String()+"/",
		map[string]any{"owner": "sales"}))
	testutil.AssertStatusOK(s.T(), rr)
	updated := testutil.UnmarshalResponse[models.Application](s.T(), rr)
	s.Equal("sales", updated.Owner)
	s.Equal("App crm", updated.Name)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID.String()+"/history/"))
	testutil.AssertStatusOK(s.T(), rr)
	hist := testutil.UnmarshalResponse[HistoryResponse](s.T(), rr)
	s.Require().Len(hist.Items, 2)
	s.Equal(history.Changed, hist.Items[0].Change)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/applications/delete/"+app.ID.String()+"/"))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID.String()+"/"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestListFiltersAndPaging() {
	for _, code := range []string{"A", "B", "C"} {
		s.createApp(code)
	}
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/?per_page=2&page=1"))
	testutil.AssertStatusOK(s.T(), rr)
	list := testutil.UnmarshalResponse[ListResponse[*models.Application]](s.T(), rr)
	s.Equal(3, list.Total)
	s.Len(list.Items, 2)
	s.Equal(2, list.PerPage)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/?status=idea&q=app%20b"))
	testutil.AssertStatusOK(s.T(), rr)
	list = testutil.UnmarshalResponse[ListResponse[*models.Application]](s.T(), rr)
	s.Equal(1, list.Total)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/?colour=red"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/?page=zero"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestRejectedInput() {
	s.Run("validation errors are 422 with fields", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/new/",
			map[string]any{"code": "X"}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("validation_error", resp.Error)
		s.Contains(resp.Fields, "name")
	})

	s.Run("unknown fields are rejected", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/new/",
			map[string]any{"name": "x", "code": "X", "colour": "red"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("empty body is rejected", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/applications/new/", ""))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("malformed id", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/not-a-uuid/"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("duplicate code conflicts", func() {
		s.createApp("DUP")
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/new/",
			map[string]any{"name": "Again", "code": "dup"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("missing reference", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/proposals/new/",
			map[string]any{"title": "T", "application_id": uuid.NewString()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestNewFormDefaults() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/meetings/new/"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "duration_minutes", float64(60))
}

func (s *HandlerSuite) TestHTMLPages() {
	app := s.createApp("WEB")

	rr := s.do(testutil.NewHTMLRequest(s.T(), http.MethodGet, "/applications/"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Header().Get("Content-Type"), "text/html")
	s.Contains(rr.Body.String(), "WEB - App WEB")

	rr = s.do(testutil.NewHTMLRequest(s.T(), http.MethodGet, "/applications/"+app.ID.String()+"/"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "Gitlab Project Id")

	rr = s.do(testutil.NewHTMLRequest(s.T(), http.MethodGet, "/applications/edit/"+app.ID.String()+"/"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), `value="WEB"`)

	rr = s.do(testutil.NewHTMLRequest(s.T(), http.MethodGet, "/applications/"+uuid.NewString()+"/"))
	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), "record not found")
}

func (s *HandlerSuite) TestFormSubmission() {
	postForm := func(path string, form url.Values) *httptest.ResponseRecorder {
		return s.do(testutil.NewFormRequest(s.T(), path, form))
	}

	rr := postForm("/meetings/new/", url.Values{
		"title":            {"Steering"},
		"scheduled_at":     {"2026-06-01T10:30"},
		"duration_minutes": {"45"},
		"attendees":        {"ana\nbo, cy"},
		"application_id":   {""},
	})
	s.Require().Equal(http.StatusSeeOther, rr.Code, rr.Body.String())
	location := rr.Header().Get("Location")
	s.True(strings.HasPrefix(location, "/meetings/"))

	id, err := uuid.Parse(strings.Trim(strings.TrimPrefix(location, "/meetings/"), "/"))
	s.Require().NoError(err)
	meeting, err := s.portfolio.Meetings.Get(context.Background(), id)
	s.Require().NoError(err)
	s.Equal([]string{"ana", "bo", "cy"}, meeting.Attendees)
	s.Equal(45, meeting.DurationMinutes)
	s.Equal(time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC), meeting.ScheduledAt)
	s.Nil(meeting.ApplicationID)

	rr = postForm("/meetings/new/", url.Values{"title": {""}, "duration_minutes": {"abc"}})
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
	s.Contains(rr.Body.String(), "must be a whole number")

	rr = postForm("/meetings/delete/"+id.String()+"/", url.Values{})
	s.Equal(http.StatusSeeOther, rr.Code)
	s.Equal("/meetings/", rr.Header().Get("Location"))
}

func (s *HandlerSuite) TestHistoryRecordsCaller() {
	at := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/applications/new/",
		map[string]any{"name": "Billing", "code": "BIL"})
	req = testutil.WithRequestTime(testutil.WithPrincipal(req, "maria", "editor"), at)
	rr := s.do(req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	app := testutil.UnmarshalResponse[models.Application](s.T(), rr)
	s.True(at.Equal(app.CreatedAt))

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/applications/"+app.ID.String()+"/history/"))
	testutil.AssertStatusOK(s.T(), rr)
	hist := testutil.UnmarshalResponse[HistoryResponse](s.T(), rr)
	s.Require().Len(hist.Items, 1)
	s.Equal("maria", hist.Items[0].ChangedBy)
	s.Equal(history.Created, hist.Items[0].Change)
	s.True(at.Equal(hist.Items[0].ChangedAt))
}
