package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	"github.com/target/mmk-storefront/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Directory = (*StubDirectory)(nil)
	_ ports.Sessions  = (*FakeSessions)(nil)
)

// StubDirectory accepts plaintext credentials from a fixed table.
// Only for tests; real directories compare bcrypt hashes.
type StubDirectory struct {
	VerifyFunc func(ctx context.Context, username, password string) (domainauth.Principal, error)

	// Users maps username to password and principal.
	Users map[string]StubUser

	mu    sync.Mutex
	calls int
}

// StubUser is one StubDirectory entry.
type StubUser struct {
	Password  string
	Principal domainauth.Principal
}

// NewStubDirectory builds a StubDirectory with the given users.
func NewStubDirectory(users map[string]StubUser) *StubDirectory {
	return &StubDirectory{Users: users}
}

func (s *StubDirectory) Verify(ctx context.Context, username, password string) (domainauth.Principal, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.VerifyFunc != nil {
		return s.VerifyFunc(ctx, username, password)
	}
	u, ok := s.Users[username]
	if !ok || u.Password != password || !u.Principal.Active {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	return u.Principal.Clone(), nil
}

// Calls returns how many times Verify ran.
func (s *StubDirectory) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FakeSessions is an in-memory ports.Sessions.
type FakeSessions struct {
	LoginFunc  func(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error)
	LogoutFunc func(ctx context.Context) error

	mu      sync.Mutex
	current *domainauth.Principal
	reads   int
}

// NewFakeSessions returns a FakeSessions, optionally already signed in.
func NewFakeSessions(current *domainauth.Principal) *FakeSessions {
	f := &FakeSessions{}
	if current != nil {
		f.Set(current)
	}
	return f
}

func (f *FakeSessions) Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error) {
	if f.LoginFunc == nil {
		return domainauth.Principal{}, domainauth.ErrInvalidCredentials
	}
	p, err := f.LoginFunc(ctx, creds)
	if err != nil {
		return domainauth.Principal{}, err
	}
	f.Set(&p)
	return p, nil
}

func (f *FakeSessions) Logout(ctx context.Context) error {
	if f.LogoutFunc != nil {
		if err := f.LogoutFunc(ctx); err != nil {
			return err
		}
	}
	f.Set(nil)
	return nil
}

func (f *FakeSessions) CurrentPrincipal(context.Context) *domainauth.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.current == nil {
		return nil
	}
	p := f.current.Clone()
	return &p
}

// Set replaces the stored principal, simulating an out-of-band write.
func (f *FakeSessions) Set(p *domainauth.Principal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p == nil {
		f.current = nil
		return
	}
	cp := p.Clone()
	f.current = &cp
}

// Reads returns how many times CurrentPrincipal was called.
func (f *FakeSessions) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
