package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchesKind(t *testing.T) {
	err := fmt.Errorf("transfer: %w", InsufficientFunds("balance too low"))

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
}

func TestStorageHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.4:5432: connection refused")
	err := Storage(cause)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage unavailable", PublicMessage(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsStorage(t *testing.T) {
	assert.NoError(t, AsStorage(nil))

	known := NotFound("wallet missing")
	assert.Same(t, known, AsStorage(known))

	foreign := AsStorage(errors.New("boom"))
	assert.Equal(t, KindStorageFailure, KindOf(foreign))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindNotFound:          http.StatusNotFound,
		KindConflict:          http.StatusConflict,
		KindInsufficientFunds: http.StatusUnprocessableEntity,
		KindRateUnavailable:   http.StatusUnprocessableEntity,
		KindSelfTransfer:      http.StatusUnprocessableEntity,
		KindStorageFailure:    http.StatusServiceUnavailable,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), string(kind))
	}
}

func TestPublicMessageForeignError(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("pq: syntax error")))
}

func TestCommitFailedIsStorageWithUnknownOutcome(t *testing.T) {
	err := fmt.Errorf("payment: %w", CommitFailed(errors.New("connection reset")))

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, ErrOutcomeUnknown)
	assert.Equal(t, "storage unavailable", PublicMessage(err))
	assert.NotErrorIs(t, Storage(errors.New("dial tcp")), ErrOutcomeUnknown)
}
