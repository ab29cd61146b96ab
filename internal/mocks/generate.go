// Package mocks provides generated mocks for the storefront auth ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for port interfaces.
// Generated files live next to the hand-written doubles in ./auth.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	dir := mocks.NewMockDirectory(ctrl)
//	dir.EXPECT().Verify(gomock.Any(), "merchant", "pw").Return(principal, nil)
package mocks

// Generate mock for Directory interface from internal/ports package.
// This creates MockDirectory with methods for all Directory interface methods:
// Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=auth -destination=auth/directory_mock.go github.com/target/mmk-storefront/internal/ports Directory
