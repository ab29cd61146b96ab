package authroles

import (
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// DefaultGrants maps each role to the permission preset a principal receives
// when its record carries no explicit grants.
// super_admin gets none because it bypasses permission checks entirely.
type DefaultGrants struct {
	// Overrides replaces the built-in preset for the listed roles.
	Overrides map[domainauth.Role][]domainauth.Permission
}

func (g DefaultGrants) Grants(role domainauth.Role) []domainauth.Permission {
	if perms, ok := g.Overrides[role]; ok {
		return domainauth.ClonePermissions(perms)
	}
	switch role {
	case domainauth.RoleSuperAdmin:
		return nil
	case domainauth.RoleMerchant:
		return []domainauth.Permission{
			{Resource: "products", Actions: []string{"read", "write", "delete"}},
			{Resource: "orders", Actions: []string{"read", "write"}},
			{Resource: "store", Actions: []string{"read", "write"}},
			{Resource: "analytics", Actions: []string{"read"}},
		}
	case domainauth.RoleCustomer:
		return []domainauth.Permission{
			{Resource: "orders", Actions: []string{"read", "write"}},
			{Resource: "cart", Actions: []string{domainauth.Wildcard}},
			{Resource: "profile", Actions: []string{"read", "write"}},
		}
	default:
		return nil
	}
}

// Apply fills in the preset for a principal without explicit grants.
func (g DefaultGrants) Apply(p domainauth.Principal) domainauth.Principal {
	if len(p.Permissions) > 0 {
		return p
	}
	p.Permissions = g.Grants(p.Role)
	return p
}
