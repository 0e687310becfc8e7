package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gl "gitlab.com/gitlab-org/api/client-go"
)

func responseError(status int, header http.Header) error {
	if header == nil {
		header = http.Header{}
	}
	return &gl.ErrorResponse{
		Response: &http.Response{StatusCode: status, Header: header},
		Message:  http.StatusText(status),
	}
}

func TestWrapClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorTypeAuth, false},
		{http.StatusForbidden, ErrorTypePermission, false},
		{http.StatusNotFound, ErrorTypeNotFound, false},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusInternalServerError, ErrorTypeServer, true},
		{http.StatusBadGateway, ErrorTypeServer, true},
		{http.StatusBadRequest, ErrorTypeUnknown, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			gErr, ok := AsError(Wrap(responseError(tc.status, nil), "projects"))
			require.True(t, ok)
			assert.Equal(t, tc.want, gErr.Type)
			assert.Equal(t, tc.retryable, gErr.Retryable)
			assert.Equal(t, tc.status, gErr.StatusCode)
			assert.Equal(t, "projects", gErr.Resource)
		})
	}
}

func TestWrapSkippable(t *testing.T) {
	forbidden, _ := AsError(Wrap(responseError(http.StatusForbidden, nil), "p"))
	missing, _ := AsError(Wrap(responseError(http.StatusNotFound, nil), "p"))
	server, _ := AsError(Wrap(responseError(http.StatusServiceUnavailable, nil), "p"))
	assert.True(t, forbidden.Skippable())
	assert.True(t, missing.Skippable())
	assert.False(t, server.Skippable())
}

func TestWrapRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	gErr, ok := AsError(Wrap(responseError(http.StatusTooManyRequests, h), "p"))
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, gErr.RetryAfter)
}

func TestWrapNetworkAndContext(t *testing.T) {
	gErr, ok := AsError(Wrap(errors.New("dial tcp: connection refused"), "groups"))
	require.True(t, ok)
	assert.Equal(t, ErrorTypeNetwork, gErr.Type)
	assert.True(t, gErr.Retryable)

	assert.ErrorIs(t, Wrap(context.Canceled, "groups"), context.Canceled)
	_, ok = AsError(Wrap(context.Canceled, "groups"))
	assert.False(t, ok)

	assert.NoError(t, Wrap(nil, "groups"))
}

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestWithRetryRecoversFromServerError(t *testing.T) {
	calls := 0
	var waits []time.Duration
	cfg := fastRetry()
	cfg.OnRetry = func(_ *Error, _ int, wait time.Duration) { waits = append(waits, wait) }

	err := WithRetry(context.Background(), cfg, "p", func(context.Context) error {
		calls++
		if calls < 3 {
			return responseError(http.StatusBadGateway, nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), "p", func(context.Context) error {
		calls++
		return responseError(http.StatusInternalServerError, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	gErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeServer, gErr.Type)
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), "p", func(context.Context) error {
		calls++
		return responseError(http.StatusForbidden, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRateLimitWaitIsCapped(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "60")
	var waits []time.Duration
	cfg := fastRetry()
	cfg.MaxRetries = 1
	cfg.OnRetry = func(_ *Error, _ int, wait time.Duration) { waits = append(waits, wait) }

	err := WithRetry(context.Background(), cfg, "p", func(context.Context) error {
		return responseError(http.StatusTooManyRequests, h)
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{2 * time.Millisecond}, waits)
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig()
	cfg.OnRetry = func(*Error, int, time.Duration) { cancel() }

	calls := 0
	err := WithRetry(ctx, cfg, "p", func(context.Context) error {
		calls++
		return responseError(http.StatusInternalServerError, nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
