package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ayo6706/ledger-transfers/internal/cryptocondition"
	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantProblem string
	}{
		{"validation", fmt.Errorf("%w: bad input", domain.ErrValidation), http.StatusBadRequest, "request/validation"},
		{"not found", domain.ErrTransferNotFound, http.StatusNotFound, "transfer/not-found"},
		{"account not found", models.ErrAccountNotFound, http.StatusNotFound, "account/not-found"},
		{"missing fulfillment", domain.ErrMissingFulfillment, http.StatusNotFound, "transfer/missing-fulfillment"},
		{"invalid modification", domain.ErrInvalidModification, http.StatusBadRequest, "transfer/invalid-modification"},
		{"unprepared", domain.ErrUnpreparedTransfer, http.StatusUnprocessableEntity, "transfer/unprepared"},
		{"expired", domain.ErrExpiredTransfer, http.StatusUnprocessableEntity, "transfer/expired"},
		{"rolled back", domain.ErrAlreadyRolledBack, http.StatusUnprocessableEntity, "transfer/already-rolled-back"},
		{"not conditional", domain.ErrTransferNotConditional, http.StatusUnprocessableEntity, "transfer/not-conditional"},
		{"unmet condition", cryptocondition.ErrUnmetCondition, http.StatusUnprocessableEntity, "transfer/unmet-condition"},
		{"unsupported type", cryptocondition.ErrUnsupportedType, http.StatusBadRequest, "condition/unsupported-type"},
		{"parse", cryptocondition.ErrParse, http.StatusBadRequest, "condition/malformed"},
		{"concurrency", eventstore.ErrConcurrencyConflict, http.StatusConflict, "transfer/concurrent-modification"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, problemType, _, ok := mapDomainError(tc.err)
			assert.True(t, ok)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantProblem, problemType)
		})
	}
}

func TestMapDBError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	status, problemType, _, ok := mapDomainError(fmt.Errorf("insert: %w", unique))
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "db/unique-violation", problemType)

	fk := &pgconn.PgError{Code: "23503"}
	status, _, _, ok = mapDomainError(fk)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, status)

	_, _, _, ok = mapDomainError(errors.New("something else"))
	assert.False(t, ok)
}
