package broker

import (
	"errors"
	"fmt"
)

// ErrPositionNotFound means the account holds no open position in the
// ticker. Callers treat it as an empty position, not a failure.
var ErrPositionNotFound = errors.New("position not found")

// ConnectivityError covers transport failures, timeouts, throttling and
// broker-side 5xx responses. It is the only retryable class.
type ConnectivityError struct {
	Op     string
	Status int
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: broker unavailable (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: broker unreachable: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// AuthError means the credentials were missing or refused.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RejectedError is a brokerage refusal: insufficient funds, unknown symbol,
// market closed, selling more than held.
type RejectedError struct {
	Ticker  string
	Status  int
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("order for %s rejected (%s): %s", e.Ticker, e.Code, e.Message)
	}
	return fmt.Sprintf("order for %s rejected: %s", e.Ticker, e.Message)
}

func IsRetryable(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
