package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	"github.com/target/mmk-storefront/internal/ports"
)

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	Principal       *domainauth.Principal
	IsAuthenticated bool
	IsSuperAdmin    bool
	IsMerchant      bool
	IsCustomer      bool
}

func newSnapshot(p *domainauth.Principal) Snapshot {
	if p == nil {
		return Snapshot{}
	}
	cp := p.Clone()
	return Snapshot{
		Principal:       &cp,
		IsAuthenticated: true,
		IsSuperAdmin:    cp.Role == domainauth.RoleSuperAdmin,
		IsMerchant:      cp.Role == domainauth.RoleMerchant,
		IsCustomer:      cp.Role == domainauth.RoleCustomer,
	}
}

// HasRole is false when unauthenticated.
func (s Snapshot) HasRole(role domainauth.Role) bool {
	return s.Principal != nil && s.Principal.Role == role
}

// HasAnyRole reports whether the principal holds one of roles.
func (s Snapshot) HasAnyRole(roles ...domainauth.Role) bool {
	return s.Principal != nil && slices.Contains(roles, s.Principal.Role)
}

// HasPermission is false when unauthenticated.
func (s Snapshot) HasPermission(resource, action string) bool {
	return s.Principal != nil && s.Principal.Can(resource, action)
}

// AuthContextOptions groups dependencies for AuthContext.
type AuthContextOptions struct {
	Sessions ports.Sessions
	Logger   *slog.Logger
}

// AuthContext holds the in-memory session snapshot shared by the view layer.
// Queries read the resident snapshot only; Login, Logout and Refresh update
// the store first and then swap the snapshot.
type AuthContext struct {
	sessions ports.Sessions
	logger   *slog.Logger

	// writeMu serialises store writes with the snapshot swap.
	writeMu sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewAuthContext initialises the context from the session store. A missing or
// corrupted session yields an unauthenticated snapshot.
func NewAuthContext(ctx context.Context, opts AuthContextOptions) *AuthContext {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &AuthContext{
		sessions:  opts.Sessions,
		logger:    logger.With("component", "auth_context"),
		listeners: make(map[int]func(Snapshot)),
	}
	a.snap = newSnapshot(a.sessions.CurrentPrincipal(ctx))
	return a
}

// Snapshot returns the current view.
func (a *AuthContext) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

func (a *AuthContext) Principal() *domainauth.Principal { return a.Snapshot().Principal }

func (a *AuthContext) IsAuthenticated() bool { return a.Snapshot().IsAuthenticated }

func (a *AuthContext) HasRole(role domainauth.Role) bool { return a.Snapshot().HasRole(role) }

func (a *AuthContext) HasPermission(resource, action string) bool {
	return a.Snapshot().HasPermission(resource, action)
}

// Login verifies creds, persists the session and publishes the new snapshot.
// On failure the previous snapshot is kept and the error is returned as is.
func (a *AuthContext) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	p, err := a.sessions.Login(ctx, creds)
	if err != nil {
		return domainauth.Principal{}, err
	}
	a.publish(newSnapshot(&p))
	return p, nil
}

// Logout clears the session. When the store delete fails the snapshot is
// re-derived from whatever is still persisted, so a principal whose keys
// survived stays signed in and the error is returned.
func (a *AuthContext) Logout(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.sessions.Logout(ctx); err != nil {
		a.logger.WarnContext(ctx, "logout: store delete failed", "error", err)
		a.publish(newSnapshot(a.sessions.CurrentPrincipal(ctx)))
		return err
	}
	a.publish(Snapshot{})
	return nil
}

// Refresh re-reads the store. Use it after the store may have changed
// outside this process.
func (a *AuthContext) Refresh(ctx context.Context) Snapshot {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	snap := newSnapshot(a.sessions.CurrentPrincipal(ctx))
	a.publish(snap)
	return snap
}

// Subscribe registers fn to run after every login, logout and refresh.
// The returned func removes the listener.
func (a *AuthContext) Subscribe(fn func(Snapshot)) (cancel func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *AuthContext) publish(snap Snapshot) {
	a.mu.Lock()
	a.snap = snap
	fns := make([]func(Snapshot), 0, len(a.listeners))
	for _, id := range sortedKeys(a.listeners) {
		fns = append(fns, a.listeners[id])
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func sortedKeys(m map[int]func(Snapshot)) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type authContextKey struct{}

// WithAuthContext stores a in ctx.
func WithAuthContext(ctx context.Context, a *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, a)
}

// FromContext returns the AuthContext stored by WithAuthContext.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	a, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return a, ok && a != nil
}
