// Package service manages accounts and password logins.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"eam/internal/accounts/models"
	"eam/internal/accounts/secrets"
	"eam/internal/platform/metrics"
	"eam/internal/platform/middleware"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/sentinel"
	"eam/pkg/requestcontext"
)

// BootstrapUsername is the account created by EnsureBootstrapAdmin.
const BootstrapUsername = "admin"

type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// Limiter throttles repeated failed logins from one client.
type Limiter interface {
	Check(ctx context.Context, username, ip string) error
	RecordFailure(ctx context.Context, username, ip string) error
	Clear(ctx context.Context, username, ip string) error
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

type Service struct {
	store   Store
	tokens  TokenIssuer
	limiter Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUser registers a new account with a hashed password.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	fields := map[string]string{}
	if username == "" {
		fields["username"] = "is required"
	}
	if !middleware.ValidRole(role) {
		fields["role"] = "must be one of viewer, editor, admin"
	}
	if len(fields) > 0 {
		return nil, dErrors.WithFields("invalid input", fields)
	}

	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "username %q is taken", username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logger.InfoContext(ctx, "user created", "username", user.Username, "role", user.Role)
	return user, nil
}

// Login checks the password and issues an access token. Unknown users and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	ip := requestcontext.ClientIP(ctx)

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, username, ip); err != nil {
			if dErrors.HasCode(err, dErrors.CodeRateLimited) {
				s.observe(ctx, "locked_out", username)
			}
			return nil, err
		}
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.fail(ctx, "unknown_user", username, ip)
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.fail(ctx, "bad_password", username, ip)
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if s.limiter != nil {
		if err := s.limiter.Clear(ctx, username, ip); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures", "username", username, "error", err)
		}
	}

	raw, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.observe(ctx, "success", user.Username)
	return &Session{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		Username:    user.Username,
		Role:        user.Role,
	}, nil
}

// EnsureBootstrapAdmin creates the admin account when no user exists yet.
// An empty password disables bootstrapping.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, BootstrapUsername, password, middleware.RoleAdmin); err != nil {
		return false, err
	}
	s.logger.WarnContext(ctx, "bootstrap admin account created; change its password", "username", BootstrapUsername)
	return true, nil
}

// fail counts a rejected login; a limiter error only gets logged so the
// caller still sees the credentials failure.
func (s *Service) fail(ctx context.Context, outcome, username, ip string) {
	s.observe(ctx, outcome, username)
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", "username", username, "error", err)
	}
}

func (s *Service) observe(ctx context.Context, outcome, username string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
	if outcome != "success" {
		s.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"username", username,
			"reason", outcome,
		)
	}
}
