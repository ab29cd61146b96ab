package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/target/mmk-storefront/internal/bootstrap"
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	apperrors "github.com/target/mmk-storefront/internal/errors"
)

var errPermissionDenied = errors.New("permission denied")

type loginOptions struct {
	Username string
	Password string
}

func parseLoginFlags(args []string) (loginOptions, error) {
	var opts loginOptions
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Username, "username", "", "username to sign in as")
	fs.StringVar(&opts.Password, "password", "", "password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// readSecret reads one line from r, without the trailing newline.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args)
	if err != nil {
		return err
	}
	if opts.Password == "" {
		if opts.Password, err = readSecret(cmdCtx.In); err != nil {
			return err
		}
	}

	return withStack(cmdCtx, func(stack *bootstrap.AuthStack) error {
		p, err := stack.Auth.Login(cmdCtx.Ctx, domainauth.Credentials{Username: opts.Username, Password: opts.Password})
		if err != nil {
			return apperrors.MapAuthError(err)
		}
		return writef(cmdCtx.Out, "Signed in as %s (%s)\n", p.Username, p.Role)
	})
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	return withStack(cmdCtx, func(stack *bootstrap.AuthStack) error {
		if err := stack.Auth.Logout(cmdCtx.Ctx); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		return writeln(cmdCtx.Out, "Signed out")
	})
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	raw := fs.Bool("json", false, "print the principal as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withStack(cmdCtx, func(stack *bootstrap.AuthStack) error {
		snap := stack.Auth.Snapshot()
		if !snap.IsAuthenticated {
			return writeln(cmdCtx.Out, "Not signed in")
		}
		if *raw {
			enc := json.NewEncoder(cmdCtx.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Principal)
		}
		p := snap.Principal
		if err := writef(cmdCtx.Out, "%s (%s) id=%s\n", p.Username, p.Role, p.ID); err != nil {
			return err
		}
		if p.Profile.Business != nil {
			if err := writef(cmdCtx.Out, "business: %s\n", p.Profile.Business.Name); err != nil {
				return err
			}
		}
		for _, perm := range p.Permissions {
			if err := writef(cmdCtx.Out, "  %s: %s\n", perm.Resource, strings.Join(perm.Actions, ",")); err != nil {
				return err
			}
		}
		return nil
	})
}

func runCan(cmdCtx *commandContext, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: can <resource> <action>")
	}
	resource, action := args[0], args[1]

	return withStack(cmdCtx, func(stack *bootstrap.AuthStack) error {
		if stack.Auth.HasPermission(resource, action) {
			return writef(cmdCtx.Out, "allowed: %s %s\n", action, resource)
		}
		if err := writef(cmdCtx.Out, "denied: %s %s\n", action, resource); err != nil {
			return err
		}
		return errPermissionDenied
	})
}
