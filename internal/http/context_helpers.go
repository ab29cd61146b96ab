package httpx

import (
	"context"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	"github.com/target/mmk-storefront/internal/service"
)

// snapshotKey carries the authorization snapshot a guard decided on, so the
// handler renders with exactly the state that was checked.
type snapshotKey struct{}

// SetSnapshotInContext returns a child context that carries snap.
func SetSnapshotInContext(ctx context.Context, snap service.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, snap)
}

// SnapshotFromContext returns the guarded snapshot and whether one was set.
func SnapshotFromContext(ctx context.Context) (service.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotKey{}).(service.Snapshot)
	return snap, ok
}

// PrincipalFromContext returns the guarded principal, or nil.
func PrincipalFromContext(ctx context.Context) *domainauth.Principal {
	if snap, ok := SnapshotFromContext(ctx); ok {
		return snap.Principal
	}
	return nil
}
