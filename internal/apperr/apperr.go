package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error code returned to clients.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindRateUnavailable   Kind = "RATE_UNAVAILABLE"
	KindSelfTransfer      Kind = "SELF_TRANSFER"
	KindVersionConflict   Kind = "VERSION_CONFLICT"
	KindStorageFailure    Kind = "STORAGE_FAILURE"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is a domain error carrying a code, a client-safe message and an
// optional cause that is only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any error of the same kind when the target is one of the
// package sentinels (a bare kind with no message).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrRateUnavailable   = &Error{Kind: KindRateUnavailable}
	ErrSelfTransfer      = &Error{Kind: KindSelfTransfer}
	ErrVersionConflict   = &Error{Kind: KindVersionConflict}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed, missing or non-positive input.
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// NotFound reports a missing wallet, user or rate pair.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Conflict reports a duplicate resource.
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func InsufficientFunds(format string, args ...any) *Error {
	return newf(KindInsufficientFunds, format, args...)
}

func RateUnavailable(from, to string) *Error {
	return newf(KindRateUnavailable, "exchange rate not available for %s -> %s", from, to)
}

func SelfTransfer() *Error {
	return &Error{Kind: KindSelfTransfer, Message: "you cannot send money to yourself"}
}

func VersionConflict(walletID string) *Error {
	return newf(KindVersionConflict, "wallet %s was modified concurrently", walletID)
}

func Unauthorized(format string, args ...any) *Error { return newf(KindUnauthorized, format, args...) }

// Storage wraps a durable-layer fault. The cause never reaches clients.
func Storage(err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "storage unavailable", Err: err}
}

// ErrOutcomeUnknown marks a storage failure raised while committing: the
// unit may or may not have been applied.
var ErrOutcomeUnknown = errors.New("commit outcome unknown")

// CommitFailed wraps a fault returned by the final commit of a unit.
func CommitFailed(err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "storage unavailable", Err: errors.Join(ErrOutcomeUnknown, err)}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Known reports whether err already belongs to the taxonomy.
func Known(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// AsStorage leaves taxonomy errors untouched and classifies everything else
// as a storage failure.
func AsStorage(err error) error {
	if err == nil || Known(err) {
		return err
	}
	return Storage(err)
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindVersionConflict:
		return http.StatusConflict
	case KindInsufficientFunds, KindRateUnavailable, KindSelfTransfer:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a client.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}
