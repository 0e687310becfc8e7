// Package lockout throttles password guessing. Failed logins are counted per
// username and client IP inside a window that opens at the first failure;
// once the count reaches the limit the pair is refused until the window ends.
package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "eam/pkg/domain-errors"
	"eam/pkg/requestcontext"
)

// Store counts failures per key.
type Store interface {
	// Failures returns the failures recorded in the key's current window and
	// when that window ends. A key with no failures returns zero values.
	Failures(ctx context.Context, key string) (int, time.Time, error)
	// RecordFailure increments the count, opening a window of length window
	// when none is open.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Clear(ctx context.Context, key string) error
}

type Config struct {
	MaxFailures int
	Window      time.Duration
}

func DefaultConfig() Config {
	return Config{MaxFailures: 5, Window: 15 * time.Minute}
}

type Service struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithConfig overrides the defaults; non-positive values keep them.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxFailures > 0 {
			s.cfg.MaxFailures = cfg.MaxFailures
		}
		if cfg.Window > 0 {
			s.cfg.Window = cfg.Window
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, cfg: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key identifies a username and client IP pair.
func Key(username, ip string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "|" + ip
}

// Check refuses the login attempt when the pair is locked out.
func (s *Service) Check(ctx context.Context, username, ip string) error {
	n, resetAt, err := s.store.Failures(ctx, Key(username, ip))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read login failures")
	}
	if n < s.cfg.MaxFailures {
		return nil
	}
	wait := max(resetAt.Sub(requestcontext.Now(ctx)), time.Second).Round(time.Second)
	s.logger.WarnContext(ctx, "login refused - locked out",
		"username", username,
		"failures", n,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeRateLimited,
		fmt.Sprintf("too many failed logins, retry in %s", wait))
}

// RecordFailure counts one failed login for the pair.
func (s *Service) RecordFailure(ctx context.Context, username, ip string) error {
	n, err := s.store.RecordFailure(ctx, Key(username, ip), s.cfg.Window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if n == s.cfg.MaxFailures {
		s.logger.WarnContext(ctx, "login locked out",
			"username", username,
			"window", s.cfg.Window,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

// Clear forgets the pair's failures after a successful login.
func (s *Service) Clear(ctx context.Context, username, ip string) error {
	if err := s.store.Clear(ctx, Key(username, ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}
