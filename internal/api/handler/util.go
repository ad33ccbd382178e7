package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/ledger-transfers/internal/api/problem"
	"github.com/ayo6706/ledger-transfers/internal/cryptocondition"
	"github.com/ayo6706/ledger-transfers/internal/domain"
	"github.com/ayo6706/ledger-transfers/internal/eventstore"
	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// mapDomainError translates service and domain errors into HTTP responses.
func mapDomainError(err error) (status int, problemType, message string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "request/validation", err.Error(), true
	case errors.Is(err, domain.ErrTransferNotFound):
		return http.StatusNotFound, "transfer/not-found", "transfer not found", true
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound, "account/not-found", "account not found", true
	case errors.Is(err, domain.ErrMissingFulfillment):
		return http.StatusNotFound, "transfer/missing-fulfillment", "transfer has no fulfillment", true
	case errors.Is(err, domain.ErrInvalidModification):
		return http.StatusBadRequest, "transfer/invalid-modification", err.Error(), true
	case errors.Is(err, domain.ErrUnpreparedTransfer):
		return http.StatusUnprocessableEntity, "transfer/unprepared", err.Error(), true
	case errors.Is(err, domain.ErrExpiredTransfer):
		return http.StatusUnprocessableEntity, "transfer/expired", err.Error(), true
	case errors.Is(err, domain.ErrAlreadyRolledBack):
		return http.StatusUnprocessableEntity, "transfer/already-rolled-back", err.Error(), true
	case errors.Is(err, domain.ErrTransferNotConditional):
		return http.StatusUnprocessableEntity, "transfer/not-conditional", err.Error(), true
	case errors.Is(err, cryptocondition.ErrUnmetCondition):
		return http.StatusUnprocessableEntity, "transfer/unmet-condition", err.Error(), true
	case errors.Is(err, cryptocondition.ErrUnsupportedType):
		return http.StatusBadRequest, "condition/unsupported-type", err.Error(), true
	case errors.Is(err, cryptocondition.ErrParse):
		return http.StatusBadRequest, "condition/malformed", err.Error(), true
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return http.StatusConflict, "transfer/concurrent-modification", "transfer was modified concurrently, retry", true
	}
	return mapDBError(err)
}

func mapDBError(err error) (status int, problemType, message string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return http.StatusConflict, "db/unique-violation", "resource already exists", true
	case "23503": // foreign_key_violation
		return http.StatusBadRequest, "db/foreign-key-violation", "invalid reference", true
	case "23514": // check_violation
		return http.StatusBadRequest, "db/check-violation", "request violates data constraints", true
	case "23502": // not_null_violation
		return http.StatusBadRequest, "db/not-null-violation", "missing required field", true
	default:
		return 0, "", "", false
	}
}
