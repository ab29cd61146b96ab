package devseed

// Package devseed loads the demo principals used by local runs.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-storefront/internal/adapters/authroles"
	"github.com/target/mmk-storefront/internal/adapters/directory"
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// Account is a demo principal with its plaintext password.
type Account struct {
	Principal domainauth.Principal
	Password  string
}

var seededAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Accounts returns the demo principals with role-default permissions applied.
func Accounts(grants authroles.DefaultGrants) []Account {
	accounts := []Account{
		{
			Password: "admin123",
			Principal: domainauth.Principal{
				ID:       "00000000-0000-4000-8000-000000000001",
				Username: "admin",
				Email:    "admin@storefront.local",
				Role:     domainauth.RoleSuperAdmin,
				Profile:  domainauth.Profile{DisplayName: "Platform Admin", FirstName: "Platform", LastName: "Admin"},
			},
		},
		{
			Password: "merchant123",
			Principal: domainauth.Principal{
				ID:       "00000000-0000-4000-8000-000000000002",
				Username: "merchant",
				Email:    "merchant@storefront.local",
				Role:     domainauth.RoleMerchant,
				Profile: domainauth.Profile{
					DisplayName: "Corner Shop",
					FirstName:   "Mara",
					LastName:    "Lin",
					Phone:       "+1-555-0100",
					Business: &domainauth.BusinessInfo{
						Name:        "Corner Shop LLC",
						StoreID:     "store-001",
						TaxID:       "00-0000001",
						Description: "Handmade goods",
					},
				},
			},
		},
		{
			Password: "customer123",
			Principal: domainauth.Principal{
				ID:       "00000000-0000-4000-8000-000000000003",
				Username: "customer",
				Email:    "customer@storefront.local",
				Role:     domainauth.RoleCustomer,
				Profile:  domainauth.Profile{DisplayName: "Sam Buyer", Address: "1 Main St"},
			},
		},
	}
	for i := range accounts {
		accounts[i].Principal.Active = true
		accounts[i].Principal.CreatedAt = seededAt
		accounts[i].Principal = grants.Apply(accounts[i].Principal)
	}
	return accounts
}

// Records hashes the demo accounts with cost.
func Records(grants authroles.DefaultGrants, cost int) ([]directory.Record, error) {
	accounts := Accounts(grants)
	out := make([]directory.Record, 0, len(accounts))
	for _, a := range accounts {
		hash, err := directory.HashPassword(a.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", a.Principal.Username, err)
		}
		out = append(out, directory.Record{Principal: a.Principal, PasswordHash: hash})
	}
	return out, nil
}

// Upserter stores a principal with its password hash.
type Upserter interface {
	Upsert(ctx context.Context, p domainauth.Principal, passwordHash string) error
}

// Seed writes the demo records to dst.
func Seed(ctx context.Context, dst Upserter, records []directory.Record, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, rec := range records {
		if err := dst.Upsert(ctx, rec.Principal, rec.PasswordHash); err != nil {
			return fmt.Errorf("seed %s: %w", rec.Principal.Username, err)
		}
	}
	logger.InfoContext(ctx, "demo principals seeded", "count", len(records))
	return nil
}
