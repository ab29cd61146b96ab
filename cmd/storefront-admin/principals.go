package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-storefront/internal/adapters/authroles"
	"github.com/target/mmk-storefront/internal/adapters/directory"
	"github.com/target/mmk-storefront/internal/adapters/postgres"
	"github.com/target/mmk-storefront/internal/bootstrap"
	"github.com/target/mmk-storefront/internal/devseed"
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	"github.com/target/mmk-storefront/internal/migrate"
	"github.com/target/mmk-storefront/internal/ports"
)

const defaultMigrationTimeout = 5 * time.Minute

func runHashPassword(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cost := fs.Int("cost", cmdCtx.Config.Auth.BcryptCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := readSecret(cmdCtx.In)
	if err != nil {
		return err
	}
	hash, err := directory.HashPassword(pw, *cost)
	if err != nil {
		return err
	}
	return writeln(cmdCtx.Out, hash)
}

func runListPrincipals(cmdCtx *commandContext, _ []string) error {
	conns, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conns.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	dir, err := bootstrap.BuildDirectory(cmdCtx.Ctx, bootstrap.AuthDeps{
		Auth:   cmdCtx.Config.Auth,
		DB:     conns.db,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	principals, err := listPrincipals(cmdCtx, dir)
	if err != nil {
		return err
	}
	return renderPrincipals(cmdCtx.Out, principals)
}

func listPrincipals(cmdCtx *commandContext, dir ports.Directory) ([]domainauth.Principal, error) {
	switch d := dir.(type) {
	case *directory.MemoryDirectory:
		return d.List(), nil
	case *postgres.Directory:
		return d.List(cmdCtx.Ctx)
	default:
		return nil, fmt.Errorf("directory %T cannot list principals", dir)
	}
}

func renderPrincipals(w io.Writer, principals []domainauth.Principal) error {
	if len(principals) == 0 {
		return writeln(w, "(no principals)")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "USERNAME\tROLE\tACTIVE\tLAST LOGIN\tPERMISSIONS\n"); err != nil {
		return err
	}
	for _, p := range principals {
		lastLogin := "-"
		if p.LastLoginAt != nil {
			lastLogin = p.LastLoginAt.UTC().Format(time.RFC3339)
		}
		perms := make([]string, 0, len(p.Permissions))
		for _, perm := range p.Permissions {
			perms = append(perms, perm.Resource+":"+strings.Join(perm.Actions, "|"))
		}
		if err := writef(tw, "%s\t%s\t%t\t%s\t%s\n",
			p.Username, p.Role, p.Active, lastLogin, strings.Join(perms, " ")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !cmdCtx.Config.NeedsPostgres() {
		return errPostgresNotConfigured
	}

	conns, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conns.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	ctx, cancel := contextWithTimeout(cmdCtx, *timeout)
	defer cancel()
	applied, err := migrate.Run(ctx, conns.db, cmdCtx.Logger)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return writeln(cmdCtx.Out, "Schema is up to date")
	}
	return writef(cmdCtx.Out, "Applied %s\n", strings.Join(applied, ", "))
}

func runSeed(cmdCtx *commandContext, _ []string) error {
	if !cmdCtx.Config.NeedsPostgres() {
		return fmt.Errorf("seed: %w; the memory directory is seeded at startup", errPostgresNotConfigured)
	}
	conns, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conns.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	records, err := devseed.Records(authroles.DefaultGrants{}, cmdCtx.Config.Auth.BcryptCost)
	if err != nil {
		return err
	}
	if err := devseed.Seed(cmdCtx.Ctx, postgres.NewDirectory(conns.db, cmdCtx.Logger), records, cmdCtx.Logger); err != nil {
		if errors.Is(err, postgres.ErrNotMigrated) {
			return fmt.Errorf("%w (run storefront-admin migrate first)", err)
		}
		return err
	}
	return writef(cmdCtx.Out, "Seeded %d demo principals\n", len(records))
}
