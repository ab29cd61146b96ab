package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	"github.com/target/mmk-storefront/internal/ports"
)

// Persisted session keys. The KV adapter applies any namespace prefix.
const (
	KeyUser        = "auth_user"
	KeyToken       = "auth_token"
	KeyPermissions = "auth_permissions"
)

var sessionKeys = []string{KeyUser, KeyToken, KeyPermissions}

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Directory ports.Directory
	Store     ports.KVStore
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
	// Metrics is optional.
	Metrics ports.AuthMetrics
}

// SessionStore owns the durable "current session" record.
type SessionStore struct {
	directory ports.Directory
	store     ports.KVStore
	now       func() time.Time
	logger    *slog.Logger
	metrics   ports.AuthMetrics
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(opts SessionStoreOptions) *SessionStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SessionStore{
		directory: opts.Directory,
		store:     opts.Store,
		now:       now,
		logger:    logger.With("component", "session_store"),
		metrics:   metrics,
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveLogin(domainauth.Role, time.Duration, error) {}
func (noopMetrics) ObserveSessionDiscarded(string) {}

// Login verifies creds and persists a new session in a single write.
func (s *SessionStore) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error) {
	start := time.Now()
	p, err := s.login(ctx, creds)
	s.metrics.ObserveLogin(p.Role, time.Since(start), err)
	return p, err
}

func (s *SessionStore) login(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error) {
	if err := creds.Validate(); err != nil {
		return domainauth.Principal{}, err
	}

	p, err := s.directory.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, domainauth.ErrInvalidCredentials) {
			s.logger.InfoContext(ctx, "login rejected")
			return domainauth.Principal{}, domainauth.ErrInvalidCredentials
		}
		return domainauth.Principal{}, fmt.Errorf("verify credentials: %w", err)
	}

	at := s.now().UTC()
	p.LastLoginAt = &at

	entries, err := encodeSession(domainauth.Session{
		Principal:   p,
		Token:       uuid.NewString(),
		Permissions: p.Permissions,
	})
	if err != nil {
		return domainauth.Principal{}, err
	}
	if err := s.store.SetMany(ctx, entries); err != nil {
		return domainauth.Principal{}, fmt.Errorf("persist session: %w", err)
	}

	if rec, ok := s.directory.(ports.LoginRecorder); ok {
		if err := rec.RecordLogin(ctx, p.ID, at); err != nil {
			s.logger.WarnContext(ctx, "record last login failed", "principal_id", p.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "login succeeded", "principal_id", p.ID, "role", p.Role.String())
	return p.Clone(), nil
}

// Logout removes every session key. It is a no-op when nothing is stored.
func (s *SessionStore) Logout(ctx context.Context) error {
	if err := s.store.DeleteMany(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentPrincipal returns the persisted principal, or nil when there is no
// usable session.
func (s *SessionStore) CurrentPrincipal(ctx context.Context) *domainauth.Principal {
	sess := s.CurrentSession(ctx)
	if sess == nil {
		return nil
	}
	return &sess.Principal
}

// CurrentSession returns the full persisted session or nil. Missing and
// corrupted data are both reported as nil.
func (s *SessionStore) CurrentSession(ctx context.Context) *domainauth.Session {
	sess, err := s.load(ctx)
	switch {
	case err == nil:
		return sess
	case errors.Is(err, domainauth.ErrNoSession):
	case errors.Is(err, domainauth.ErrCorruptedSession):
		s.logger.WarnContext(ctx, "discarding corrupted session", "error", err)
		s.metrics.ObserveSessionDiscarded("corrupted")
	default:
		s.logger.WarnContext(ctx, "session store unavailable", "error", err)
		s.metrics.ObserveSessionDiscarded("unavailable")
	}
	return nil
}

// HasRole reports whether the persisted principal holds role.
func (s *SessionStore) HasRole(ctx context.Context, role domainauth.Role) bool {
	p := s.CurrentPrincipal(ctx)
	return p != nil && p.Role == role
}

// HasPermission reports whether the persisted principal may perform action on resource.
func (s *SessionStore) HasPermission(ctx context.Context, resource, action string) bool {
	p := s.CurrentPrincipal(ctx)
	return p != nil && p.Can(resource, action)
}

func (s *SessionStore) load(ctx context.Context) (*domainauth.Session, error) {
	rawUser, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainauth.ErrNoSession
	}
	token, tokenOK, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	rawPerms, permsOK, err := s.store.Get(ctx, KeyPermissions)
	if err != nil {
		return nil, err
	}
	if !tokenOK || token == "" || !permsOK {
		return nil, fmt.Errorf("%w: incomplete session", domainauth.ErrCorruptedSession)
	}
	return decodeSession(rawUser, token, rawPerms)
}

func encodeSession(sess domainauth.Session) (map[string]string, error) {
	user, err := json.Marshal(sess.Principal)
	if err != nil {
		return nil, fmt.Errorf("encode principal: %w", err)
	}
	perms := sess.Permissions
	if perms == nil {
		perms = []domainauth.Permission{}
	}
	rawPerms, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}
	return map[string]string{
		KeyUser:        string(user),
		KeyToken:       sess.Token,
		KeyPermissions: string(rawPerms),
	}, nil
}

func decodeSession(rawUser, token, rawPerms string) (*domainauth.Session, error) {
	var p domainauth.Principal
	if err := json.Unmarshal([]byte(rawUser), &p); err != nil {
		return nil, fmt.Errorf("%w: principal: %w", domainauth.ErrCorruptedSession, err)
	}
	if err := p.WellFormed(); err != nil {
		return nil, fmt.Errorf("%w: principal: %w", domainauth.ErrCorruptedSession, err)
	}
	var perms []domainauth.Permission
	if err := json.Unmarshal([]byte(rawPerms), &perms); err != nil {
		return nil, fmt.Errorf("%w: permissions: %w", domainauth.ErrCorruptedSession, err)
	}
	if !domainauth.EqualPermissions(p.Permissions, perms) {
		return nil, fmt.Errorf("%w: permission snapshot does not match principal", domainauth.ErrCorruptedSession)
	}
	return &domainauth.Session{Principal: p, Token: token, Permissions: perms}, nil
}
