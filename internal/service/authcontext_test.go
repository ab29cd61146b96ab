package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-storefront/internal/adapters/kvstore"
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	mocks "github.com/target/mmk-storefront/internal/mocks/auth"
)

func principalWithRole(role domainauth.Role, perms ...domainauth.Permission) domainauth.Principal {
	return domainauth.Principal{ID: "id-" + role.String(), Username: role.String(), Role: role, Permissions: perms, Active: true}
}

func TestAuthContext_InitialisesFromStore(t *testing.T) {
	p := principalWithRole(domainauth.RoleCustomer)
	fake := mocks.NewFakeSessions(&p)

	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: fake})

	snap := ac.Snapshot()
	require.True(t, snap.IsAuthenticated)
	assert.True(t, snap.IsCustomer)
	assert.False(t, snap.IsMerchant)
	assert.False(t, snap.IsSuperAdmin)
	assert.Equal(t, "customer", snap.Principal.Username)
}

func TestAuthContext_UnauthenticatedClosure(t *testing.T) {
	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: mocks.NewFakeSessions(nil)})

	assert.False(t, ac.IsAuthenticated())
	assert.Nil(t, ac.Principal())
	for _, r := range domainauth.Roles() {
		assert.False(t, ac.HasRole(r), r)
	}
	assert.False(t, ac.HasPermission("*", "*"))
	assert.False(t, ac.HasPermission("products", "read"))
}

func TestAuthContext_QueriesUseResidentSnapshot(t *testing.T) {
	p := principalWithRole(domainauth.RoleMerchant, domainauth.Permission{Resource: "products", Actions: []string{"read"}})
	fake := mocks.NewFakeSessions(&p)
	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: fake})
	reads := fake.Reads()

	for range 10 {
		assert.True(t, ac.HasPermission("products", "read"))
		assert.True(t, ac.HasRole(domainauth.RoleMerchant))
	}
	assert.Equal(t, reads, fake.Reads())
}

func TestAuthContext_StaleUntilRefresh(t *testing.T) {
	p := principalWithRole(domainauth.RoleMerchant)
	fake := mocks.NewFakeSessions(&p)
	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: fake})

	// Another process signs out.
	fake.Set(nil)
	assert.True(t, ac.IsAuthenticated())

	snap := ac.Refresh(context.Background())
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, ac.IsAuthenticated())
}

func TestAuthContext_LoginLogoutWithSessionStore(t *testing.T) {
	store, _, _ := newTestSessionStore(t)
	ctx := context.Background()
	ac := NewAuthContext(ctx, AuthContextOptions{Sessions: store})
	require.False(t, ac.IsAuthenticated())

	p, err := ac.Login(ctx, domainauth.Credentials{Username: "merchant", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", p.ID)
	assert.True(t, ac.Snapshot().IsMerchant)
	require.NotNil(t, store.CurrentPrincipal(ctx))
	assert.Equal(t, ac.Principal().ID, store.CurrentPrincipal(ctx).ID)

	require.NoError(t, ac.Logout(ctx))
	assert.False(t, ac.IsAuthenticated())
	assert.Nil(t, store.CurrentPrincipal(ctx))

	require.NoError(t, ac.Logout(ctx))
}

func TestAuthContext_FailedLoginKeepsPreviousSnapshot(t *testing.T) {
	store, _, _ := newTestSessionStore(t)
	ctx := context.Background()
	ac := NewAuthContext(ctx, AuthContextOptions{Sessions: store})

	_, err := ac.Login(ctx, domainauth.Credentials{Username: "merchant", Password: "pw"})
	require.NoError(t, err)

	_, err = ac.Login(ctx, domainauth.Credentials{Username: "merchant", Password: "wrong"})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.True(t, ac.IsAuthenticated())
	require.NotNil(t, store.CurrentPrincipal(ctx))
}

func TestAuthContext_LogoutKeepsPersistedPrincipalOnStoreError(t *testing.T) {
	p := principalWithRole(domainauth.RoleCustomer)
	fake := mocks.NewFakeSessions(&p)
	fake.LogoutFunc = func(context.Context) error { return errors.New("locked") }
	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: fake})

	var published []bool
	ac.Subscribe(func(s Snapshot) { published = append(published, s.IsAuthenticated) })

	require.Error(t, ac.Logout(context.Background()))
	assert.True(t, ac.IsAuthenticated())
	require.NotNil(t, fake.CurrentPrincipal(context.Background()))
	assert.Equal(t, p.ID, ac.Principal().ID)
	assert.Equal(t, []bool{true}, published)

	// Refresh agrees with the snapshot; the principal does not reappear later.
	assert.True(t, ac.Refresh(context.Background()).IsAuthenticated)
}

func TestAuthContext_Subscribe(t *testing.T) {
	store, _, _ := newTestSessionStore(t)
	ctx := context.Background()
	ac := NewAuthContext(ctx, AuthContextOptions{Sessions: store})

	var got []bool
	cancel := ac.Subscribe(func(s Snapshot) { got = append(got, s.IsAuthenticated) })

	_, err := ac.Login(ctx, domainauth.Credentials{Username: "merchant", Password: "pw"})
	require.NoError(t, err)
	ac.Refresh(ctx)
	require.NoError(t, ac.Logout(ctx))
	assert.Equal(t, []bool{true, true, false}, got)

	cancel()
	cancel()
	_, err = ac.Login(ctx, domainauth.Credentials{Username: "merchant", Password: "pw"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestAuthContext_ConcurrentLoginsLastWriteWins(t *testing.T) {
	admin := principalWithRole(domainauth.RoleSuperAdmin)
	merchant := merchantPrincipal()
	dir := mocks.NewStubDirectory(map[string]mocks.StubUser{
		"admin":    {Password: "pw", Principal: admin},
		"merchant": {Password: "pw", Principal: merchant},
	})
	store := NewSessionStore(SessionStoreOptions{Directory: dir, Store: kvstore.NewMemory()})
	ctx := context.Background()
	ac := NewAuthContext(ctx, AuthContextOptions{Sessions: store})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "admin"
			if i%2 == 0 {
				user = "merchant"
			}
			_, _ = ac.Login(ctx, domainauth.Credentials{Username: user, Password: "pw"})
		}(i)
	}
	wg.Wait()

	persisted := store.CurrentPrincipal(ctx)
	require.NotNil(t, persisted)
	require.True(t, ac.IsAuthenticated())
	assert.Equal(t, persisted.ID, ac.Principal().ID, "snapshot and store must agree")
}

func TestWithAuthContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ac := NewAuthContext(context.Background(), AuthContextOptions{Sessions: mocks.NewFakeSessions(nil)})
	got, ok := FromContext(WithAuthContext(context.Background(), ac))
	require.True(t, ok)
	assert.Same(t, ac, got)
}
