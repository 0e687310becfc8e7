package cmd

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"eam/internal/accounts/service"
	"eam/internal/gitlabsync/models"
	"eam/internal/platform/config"
	"eam/internal/platform/logger"
	"eam/internal/platform/middleware"
	"eam/pkg/testutil"
)

const adminPassword = "correct-horse-battery"

type RouterSuite struct {
	suite.Suite
	app    *App
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := config.Defaults()
	cfg.GitLab.Token = ""

	app, err := NewApp(context.Background(), cfg, logger.Discard(), nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { app.Close(context.Background()) })

	_, err = app.Accounts.EnsureBootstrapAdmin(context.Background(), adminPassword)
	s.Require().NoError(err)

	s.app = app
	s.router = NewRouter(app)
}

func (s *RouterSuite) login(username, password string) string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	session := testutil.UnmarshalResponse[service.Session](s.T(), rr)
	s.Require().NotEmpty(session.AccessToken)
	return session.AccessToken
}

func (s *RouterSuite) authed(method, path, token string) *http.Request {
	return testutil.WithBearer(testutil.NewRequest(s.T(), method, path), token)
}

func (s *RouterSuite) TestHealthz() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")
}

func (s *RouterSuite) TestMetricsArePublic() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "go_goroutines")
}

func (s *RouterSuite) TestPortfolioRequiresToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/applications/"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RouterSuite) TestLoginThenList() {
	token := s.login("admin", adminPassword)

	rr := testutil.DoRequest(s.router, s.authed(http.MethodGet, "/applications/?format=json", token))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "total", float64(0))

	rr = testutil.DoRequest(s.router, s.authed(http.MethodGet, "/kpi/", token))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *RouterSuite) TestViewerCannotWrite() {
	_, err := s.app.Accounts.CreateUser(context.Background(), "vera", "viewer-password", middleware.RoleViewer)
	s.Require().NoError(err)
	token := s.login("vera", "viewer-password")

	rr := testutil.DoRequest(s.router, s.authed(http.MethodGet, "/meetings/", token))
	testutil.AssertStatusOK(s.T(), rr)

	rr = testutil.DoRequest(s.router, s.authed(http.MethodPost, "/applications/new/", token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *RouterSuite) TestSyncWithoutGitLabIsUnavailable() {
	token := s.login("admin", adminPassword)

	rr := testutil.DoRequest(s.router, s.authed(http.MethodPost, "/gitlab/sync/projects/", token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")

	rr = testutil.DoRequest(s.router, s.authed(http.MethodGet, "/gitlab/sync/jobs/", token))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *RouterSuite) TestMirrorListIsReachable() {
	token := s.login("admin", adminPassword)
	rr := testutil.DoRequest(s.router, s.authed(http.MethodGet, "/gitlab/projects/", token))
	testutil.AssertStatusOK(s.T(), rr)
}

func newJob() *models.Job {
	return models.NewJob(models.KindProjects, "tester", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewAppWithoutBackends(t *testing.T) {
	app, err := NewApp(context.Background(), config.Defaults(), logger.Discard(), nil)
	require.NoError(t, err)
	defer app.Close(context.Background())

	require.Nil(t, app.DB)
	require.Nil(t, app.Redis)
	require.Nil(t, app.Producer)
	require.NoError(t, app.Health(context.Background()))
}

func (s *RouterSuite) TestRepeatedBadLoginsAreThrottled() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
		map[string]string{"username": "admin", "password": "wrong-password"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	for range s.app.Config.Login.MaxFailures {
		rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
			map[string]string{"username": "admin", "password": "wrong-password"}))
	}
	testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate_limited")
}

func (s *RouterSuite) badLoginFrom(router http.Handler, forwardedFor string) int {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login",
		map[string]string{"username": "admin", "password": "wrong-password"})
	req.Header.Set("X-Forwarded-For", forwardedFor)
	return testutil.DoRequest(router, req).Code
}

func (s *RouterSuite) TestForgedForwardedForDoesNotResetLockout() {
	codes := make([]int, 0, 20)
	for i := range 20 {
		codes = append(codes, s.badLoginFrom(s.router, fmt.Sprintf("198.51.100.%d", i+1)))
	}
	s.Equal(http.StatusUnauthorized, codes[0])
	s.Contains(codes, http.StatusTooManyRequests)
	s.Equal(http.StatusTooManyRequests, codes[len(codes)-1])
}

func (s *RouterSuite) TestTrustedProxyClientsAreCountedSeparately() {
	cfg := config.Defaults()
	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	app, err := NewApp(context.Background(), cfg, logger.Discard(), nil)
	s.Require().NoError(err)
	defer app.Close(context.Background())
	_, err = app.Accounts.EnsureBootstrapAdmin(context.Background(), adminPassword)
	s.Require().NoError(err)
	router := NewRouter(app)

	var last int
	for range cfg.Login.MaxFailures + 1 {
		last = s.badLoginFrom(router, "198.51.100.1")
	}
	s.Equal(http.StatusTooManyRequests, last)
	s.Equal(http.StatusUnauthorized, s.badLoginFrom(router, "198.51.100.2"))
}

func TestNewAppRejectsInvalidTrustedProxy(t *testing.T) {
	cfg := config.Defaults()
	cfg.TrustedProxies = []string{"not-a-network"}
	_, err := NewApp(context.Background(), cfg, logger.Discard(), nil)
	require.Error(t, err)
}
