package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-transfers/internal/models"
	"github.com/ayo6706/ledger-transfers/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ChargeHandler struct {
	svc *service.ChargeService
}

func NewChargeHandler(svc *service.ChargeService) *ChargeHandler {
	return &ChargeHandler{svc: svc}
}

// Create handles POST /v1/charges.
func (h *ChargeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var charge models.Charge
	if err := json.NewDecoder(r.Body).Decode(&charge); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	charge.IsActive = true

	if err := h.svc.Create(r.Context(), &charge); err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create charge failed", zap.Error(err), zap.String("name", charge.Name))
		RespondError(w, r, http.StatusInternalServerError, "charge/create-failed", "Failed to create charge")
		return
	}
	RespondJSON(w, http.StatusCreated, charge)
}

// List handles GET /v1/charges.
func (h *ChargeHandler) List(w http.ResponseWriter, r *http.Request) {
	charges, err := h.svc.ListActive(r.Context())
	if err != nil {
		zap.L().Error("list charges failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "charge/list-failed", "Failed to list charges")
		return
	}
	RespondJSON(w, http.StatusOK, charges)
}

// TransferFees handles GET /v1/transfers/{id}/fees.
func (h *ChargeHandler) TransferFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.svc.FeesForTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("list transfer fees failed", zap.Error(err), zap.String("transfer_id", chi.URLParam(r, "id")))
		RespondError(w, r, http.StatusInternalServerError, "charge/fees-read-failed", "Failed to list fees")
		return
	}
	RespondJSON(w, http.StatusOK, fees)
}
