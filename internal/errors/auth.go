package errors

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// InvalidCredentialsMessage is the only text shown for a rejected login.
const InvalidCredentialsMessage = "Invalid username or password."

// MapAuthError maps errors from the login path to AppError instances:
// - domainauth.ErrInvalidCredentials → InvalidCredentials
// - context timeouts/cancellations → Timeout/Canceled
// - Postgres connection exceptions, network errors, redis pool timeouts → Unavailable
//
// Anything else becomes Internal. An AppError is returned unchanged.
func MapAuthError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return &AppError{Code: ErrCodeInvalidCredentials, Message: InvalidCredentialsMessage, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case isUnavailable(err):
		return &AppError{Code: ErrCodeUnavailable, Message: "Sign-in is temporarily unavailable.", Cause: err}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "Internal error", Cause: err}
	}
}

func isUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgErr.Code == pgerrcode.UndefinedTable
	}
	if errors.Is(err, redis.ErrPoolTimeout) || errors.Is(err, redis.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
