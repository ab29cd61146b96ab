package testutil

import (
	"time"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// FixedTime is the reference timestamp used by fixtures.
var FixedTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// PrincipalBuilder provides a fluent interface for building principals in tests.
type PrincipalBuilder struct {
	p domainauth.Principal
}

// NewPrincipal starts a builder with an active customer.
func NewPrincipal(id, username string) *PrincipalBuilder {
	return &PrincipalBuilder{p: domainauth.Principal{
		ID:        id,
		Username:  username,
		Email:     username + "@example.com",
		Role:      domainauth.RoleCustomer,
		Profile:   domainauth.Profile{DisplayName: username},
		Active:    true,
		CreatedAt: FixedTime,
	}}
}

// WithRole sets the role.
func (b *PrincipalBuilder) WithRole(r domainauth.Role) *PrincipalBuilder {
	b.p.Role = r
	return b
}

// Grant appends a permission.
func (b *PrincipalBuilder) Grant(resource string, actions ...string) *PrincipalBuilder {
	b.p.Permissions = append(b.p.Permissions, domainauth.Permission{Resource: resource, Actions: actions})
	return b
}

// WithBusiness attaches merchant business info.
func (b *PrincipalBuilder) WithBusiness(name string) *PrincipalBuilder {
	b.p.Profile.Business = &domainauth.BusinessInfo{Name: name}
	return b
}

// Inactive marks the principal as disabled.
func (b *PrincipalBuilder) Inactive() *PrincipalBuilder {
	b.p.Active = false
	return b
}

// Build returns a copy of the principal.
func (b *PrincipalBuilder) Build() domainauth.Principal { return b.p.Clone() }

// Ptr returns a pointer to a copy of the principal.
func (b *PrincipalBuilder) Ptr() *domainauth.Principal {
	p := b.Build()
	return &p
}
