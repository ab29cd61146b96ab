package directory

// Package directory provides the in-process principal directory used when no
// backend is deployed. Passwords are stored only as bcrypt hashes.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// Record is a principal plus its salted password hash.
type Record struct {
	Principal    domainauth.Principal
	PasswordHash string
}

// Config controls the memory directory.
type Config struct {
	Records []Record
	// Latency simulates a network round trip on every Verify. Zero disables it.
	Latency time.Duration
	// HashCost is the bcrypt cost used for the timing-equalisation hash.
	// Defaults to bcrypt.DefaultCost.
	HashCost int
	Logger   *slog.Logger
}

// MemoryDirectory implements ports.Directory over an in-memory record set.
type MemoryDirectory struct {
	mu        sync.RWMutex
	records   map[string]Record
	latency   time.Duration
	dummyHash []byte
	logger    *slog.Logger
}

// NewMemoryDirectory constructs a directory from Config.
func NewMemoryDirectory(cfg Config) (*MemoryDirectory, error) {
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &MemoryDirectory{
		records:   make(map[string]Record, len(cfg.Records)),
		latency:   cfg.Latency,
		dummyHash: dummy,
		logger:    logger.With("component", "directory"),
	}
	for _, rec := range cfg.Records {
		if putErr := d.Put(rec); putErr != nil {
			return nil, putErr
		}
	}
	return d, nil
}

// Put inserts or replaces a record keyed by username.
func (d *MemoryDirectory) Put(rec Record) error {
	username := strings.TrimSpace(rec.Principal.Username)
	if username == "" {
		return errors.New("directory: username is required")
	}
	if rec.PasswordHash == "" {
		return fmt.Errorf("directory: password hash is required for %q", username)
	}
	rec.Principal = rec.Principal.Clone()
	d.mu.Lock()
	d.records[username] = rec
	d.mu.Unlock()
	return nil
}

// List returns all principals sorted by username.
func (d *MemoryDirectory) List() []domainauth.Principal {
	d.mu.RLock()
	out := make([]domainauth.Principal, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, rec.Principal.Clone())
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Verify checks username/password and returns the matching principal.
func (d *MemoryDirectory) Verify(ctx context.Context, username, password string) (domainauth.Principal, error) {
	if err := d.wait(ctx); err != nil {
		return domainauth.Principal{}, err
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}

	d.mu.RLock()
	rec, ok := d.records[strings.TrimSpace(username)]
	d.mu.RUnlock()

	if !ok {
		// Same bcrypt cost as a known user.
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	if !rec.Principal.Active {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	if err := rec.Principal.WellFormed(); err != nil {
		d.logger.WarnContext(ctx, "directory record is malformed", "username", rec.Principal.Username, "error", err)
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	return rec.Principal.Clone(), nil
}

func (d *MemoryDirectory) wait(ctx context.Context) error {
	if d.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("verify credentials: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// HashPassword returns a bcrypt hash of password using cost (DefaultCost when zero).
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// RecordLogin stamps LastLoginAt on the stored record.
func (d *MemoryDirectory) RecordLogin(_ context.Context, principalID string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for username, rec := range d.records {
		if rec.Principal.ID == principalID {
			t := at
			rec.Principal.LastLoginAt = &t
			d.records[username] = rec
			return nil
		}
	}
	return fmt.Errorf("directory: principal %q not found", principalID)
}

// Upsert stores p with passwordHash, replacing any record with the same username.
func (d *MemoryDirectory) Upsert(_ context.Context, p domainauth.Principal, passwordHash string) error {
	return d.Put(Record{Principal: p, PasswordHash: passwordHash})
}
