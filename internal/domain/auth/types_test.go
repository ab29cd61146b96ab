package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "super_admin", want: RoleSuperAdmin},
		{in: " Merchant ", want: RoleMerchant},
		{in: "customer", want: RoleCustomer},
		{in: "admin", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoles_AllValid(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("guest").Valid())
}

func TestRole_JSONRejectsUnknown(t *testing.T) {
	var p Principal
	err := json.Unmarshal([]byte(`{"id":"u1","username":"x","role":"root"}`), &p)
	require.Error(t, err)

	_, err = json.Marshal(Principal{ID: "u1", Username: "x", Role: "root"})
	require.Error(t, err)
}

func TestPrincipal_WellFormed(t *testing.T) {
	good := Principal{ID: "u1", Username: "ana", Role: RoleCustomer}
	require.NoError(t, good.WellFormed())

	cases := map[string]Principal{
		"missing id":       {Username: "ana", Role: RoleCustomer},
		"missing username": {ID: "u1", Role: RoleCustomer},
		"bad role":         {ID: "u1", Username: "ana", Role: "root"},
		"bad permission":   {ID: "u1", Username: "ana", Role: RoleCustomer, Permissions: []Permission{{Resource: ""}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, p.WellFormed())
		})
	}
}

func TestPrincipal_CloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := Principal{
		ID:          "u1",
		Username:    "shop",
		Role:        RoleMerchant,
		Profile:     Profile{Business: &BusinessInfo{Name: "Shop"}},
		Permissions: []Permission{{Resource: "products", Actions: []string{"read"}}},
		LastLoginAt: &now,
	}
	cp := orig.Clone()
	cp.Permissions[0].Actions[0] = "write"
	cp.Profile.Business.Name = "Other"

	assert.Equal(t, "read", orig.Permissions[0].Actions[0])
	assert.Equal(t, "Shop", orig.Profile.Business.Name)
	assert.NotSame(t, orig.LastLoginAt, cp.LastLoginAt)
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Username: "a", Password: "b"}.Validate())
	assert.ErrorIs(t, Credentials{Username: "", Password: "b"}.Validate(), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{Username: "a"}.Validate(), ErrInvalidCredentials)
}
