package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RateLimitError reports that the database refused work because of a capacity
// limit. RetryAfter is a hint for the caller, not a promise.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("database rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// SQLSTATE codes treated as throttling: too_many_connections,
// configuration_limit_exceeded and lock_not_available.
var rateLimitCodes = map[string]bool{
	"53300": true,
	"53400": true,
	"55P03": true,
}

// classifyError wraps capacity errors into a RateLimitError and leaves others untouched.
func classifyError(err error, retryAfter time.Duration) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && rateLimitCodes[pgErr.Code] {
		return &RateLimitError{RetryAfter: retryAfter, Err: err}
	}
	return err
}
