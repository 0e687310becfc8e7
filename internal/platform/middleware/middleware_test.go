package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eam/internal/platform/logger"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

type stubValidator struct {
	claims *Claims
}

func (s stubValidator) ValidateToken(token string) (*Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func TestRequireAuth(t *testing.T) {
	var seen requestcontext.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestcontext.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAuth(stubValidator{claims: &Claims{UserID: "u1", Username: "alice", Role: RoleEditor}}, logger.Discard())(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token stores principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "alice", seen.Username)
		assert.Equal(t, RoleEditor, seen.Role)
	})
}

func TestRequireRoleForWrites(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRoleForWrites(RoleEditor, logger.Discard())(next)

	viewer := requestcontext.WithPrincipal(t.Context(), requestcontext.Principal{Username: "v", Role: RoleViewer})

	get := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(viewer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)

	post := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(viewer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(RoleAdmin, RoleEditor))
	assert.True(t, HasRole(RoleEditor, RoleEditor))
	assert.False(t, HasRole(RoleViewer, RoleEditor))
	assert.False(t, HasRole("", RoleViewer))
	assert.False(t, HasRole(RoleAdmin, "root"))
}

func TestRequestIDPropagation(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", got)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "abc-123", got)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct peer", remote: "203.0.113.9:4000", want: "203.0.113.9"},
		{name: "untrusted peer cannot spoof", remote: "203.0.113.9:4000", xff: "1.2.3.4", xri: "5.6.7.8", want: "203.0.113.9"},
		{name: "trusted proxy forwards", remote: "10.1.2.3:80", xff: "198.51.100.7", want: "198.51.100.7"},
		{name: "client-prepended hops are skipped", remote: "10.1.2.3:80", xff: "1.2.3.4, 198.51.100.7, 10.0.0.5", want: "198.51.100.7"},
		{name: "all hops trusted", remote: "192.168.1.1:80", xff: "10.0.0.9, 10.0.0.5", want: "10.0.0.9"},
		{name: "garbage hop stops the walk", remote: "10.1.2.3:80", xff: "not-an-ip", want: "10.1.2.3"},
		{name: "real ip fallback", remote: "10.1.2.3:80", xri: "198.51.100.8", want: "198.51.100.8"},
		{name: "ipv6 peer", remote: "[2001:db8::1]:443", xff: "1.2.3.4", want: "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(req, trusted))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	require.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	require.Error(t, err)

	none, err := ParseTrustedProxies(nil)
	require.NoError(t, err)
	assert.False(t, none.trusts("127.0.0.1"))
}

func TestTimeoutSurfacesAsGatewayTimeout(t *testing.T) {
	h := Timeout(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		httputil.WriteError(w, dErrors.Wrap(r.Context().Err(), dErrors.CodeInternal, "failed to load report"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/kpi", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timeout"`)
}
