package postgres

// Package postgres provides a database-backed principal directory.

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// ErrNotMigrated is returned when the principals table does not exist.
var ErrNotMigrated = errors.New("principals table missing; run migrations")

// dummyHash is compared against when the username is unknown so lookups
// cost the same regardless of outcome.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil
	}
	return h
})

const selectPrincipalByUsername = `
	SELECT id, username, email, role, profile, permissions, password_hash, active, created_at, last_login_at
	FROM principals
	WHERE username = $1`

const selectPrincipals = `
	SELECT id, username, email, role, profile, permissions, active, created_at, last_login_at
	FROM principals
	ORDER BY username`

const upsertPrincipal = `
	INSERT INTO principals (id, username, email, role, profile, permissions, password_hash, active, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (username) DO UPDATE SET
		email = EXCLUDED.email,
		role = EXCLUDED.role,
		profile = EXCLUDED.profile,
		permissions = EXCLUDED.permissions,
		password_hash = EXCLUDED.password_hash,
		active = EXCLUDED.active`

// Directory implements ports.Directory backed by the principals table.
type Directory struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDirectory creates a Directory using db (opened with the pgx stdlib driver).
func NewDirectory(db *sql.DB, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{db: db, logger: logger.With("component", "postgres_directory")}
}

// Verify looks up username and checks password against the stored bcrypt hash.
func (d *Directory) Verify(ctx context.Context, username, password string) (domainauth.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}

	p, hash, err := d.findByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return domainauth.Principal{}, domainauth.ErrInvalidCredentials
		}
		return domainauth.Principal{}, err
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); cmpErr != nil {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	if !p.Active {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	if wfErr := p.WellFormed(); wfErr != nil {
		d.logger.WarnContext(ctx, "principal row is malformed", "username", username, "error", wfErr)
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	return p, nil
}

func (d *Directory) findByUsername(ctx context.Context, username string) (domainauth.Principal, string, error) {
	var (
		p    domainauth.Principal
		raw  rawPrincipal
		hash string
	)
	err := d.db.QueryRowContext(ctx, selectPrincipalByUsername, username).Scan(
		&p.ID, &p.Username, &p.Email, &raw.role, &raw.profile, &raw.permissions, &hash, &p.Active, &p.CreatedAt, &raw.lastLogin,
	)
	if err != nil {
		return p, "", classify(err, "select principal")
	}
	if err := d.decodeRow(ctx, &p, raw); err != nil {
		return p, "", err
	}
	return p, hash, nil
}

type rawPrincipal struct {
	role        string
	profile     []byte
	permissions []byte
	lastLogin   sql.NullTime
}

// decodeRow fills the typed fields of p. Bad rows surface as
// ErrInvalidCredentials so callers cannot tell them from a wrong password.
func (d *Directory) decodeRow(ctx context.Context, p *domainauth.Principal, raw rawPrincipal) error {
	parsed, err := domainauth.ParseRole(raw.role)
	if err != nil {
		d.logger.WarnContext(ctx, "principal row has invalid role", "username", p.Username, "role", raw.role)
		return domainauth.ErrInvalidCredentials
	}
	p.Role = parsed

	if len(raw.profile) > 0 {
		if uerr := json.Unmarshal(raw.profile, &p.Profile); uerr != nil {
			d.logger.WarnContext(ctx, "principal profile is not valid JSON", "username", p.Username, "error", uerr)
			return domainauth.ErrInvalidCredentials
		}
	}
	if len(raw.permissions) > 0 {
		if uerr := json.Unmarshal(raw.permissions, &p.Permissions); uerr != nil {
			d.logger.WarnContext(ctx, "principal permissions are not valid JSON", "username", p.Username, "error", uerr)
			return domainauth.ErrInvalidCredentials
		}
	}
	if raw.lastLogin.Valid {
		t := raw.lastLogin.Time
		p.LastLoginAt = &t
	}
	return nil
}

// List returns every principal ordered by username. Rows that fail to
// decode are logged and skipped.
func (d *Directory) List(ctx context.Context) ([]domainauth.Principal, error) {
	rows, err := d.db.QueryContext(ctx, selectPrincipals)
	if err != nil {
		return nil, classify(err, "list principals")
	}
	defer rows.Close()

	var out []domainauth.Principal
	for rows.Next() {
		var (
			p   domainauth.Principal
			raw rawPrincipal
		)
		if err := rows.Scan(
			&p.ID, &p.Username, &p.Email, &raw.role, &raw.profile, &raw.permissions, &p.Active, &p.CreatedAt, &raw.lastLogin,
		); err != nil {
			return nil, classify(err, "scan principal")
		}
		if d.decodeRow(ctx, &p, raw) != nil {
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list principals")
	}
	return out, nil
}

// Upsert inserts or replaces a principal keyed by username.
func (d *Directory) Upsert(ctx context.Context, p domainauth.Principal, passwordHash string) error {
	if err := p.WellFormed(); err != nil {
		return fmt.Errorf("upsert principal: %w", err)
	}
	if passwordHash == "" {
		return errors.New("upsert principal: password hash is required")
	}
	profile, err := json.Marshal(p.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	perms := p.Permissions
	if perms == nil {
		perms = []domainauth.Permission{}
	}
	permissions, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = d.db.ExecContext(ctx, upsertPrincipal,
		p.ID, p.Username, p.Email, p.Role.String(), profile, permissions, passwordHash, p.Active, p.CreatedAt,
	)
	if err != nil {
		return classify(err, "upsert principal")
	}
	return nil
}

// RecordLogin stamps last_login_at for the principal.
func (d *Directory) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := d.db.ExecContext(ctx, `UPDATE principals SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return classify(err, "record login")
	}
	return nil
}

func classify(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%s: %w: %w", op, ErrNotMigrated, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
