package handler

import (
	"net/http"

	"github.com/ayo6706/ledger-transfers/internal/service"
	"go.uber.org/zap"
)

type SettlementHandler struct {
	svc *service.SettlementService
}

func NewSettlementHandler(svc *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

// Create handles POST /v1/settlements, settling every currently settleable
// transfer into a new batch.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Settle(r.Context())
	if err != nil {
		zap.L().Error("settlement failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "settlement/create-failed", "Failed to create settlement")
		return
	}
	status := http.StatusCreated
	if result.Settlement == nil {
		status = http.StatusOK
	}
	RespondJSON(w, status, result)
}

// ListSettleable handles GET /v1/settlements/settleable.
func (h *SettlementHandler) ListSettleable(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.ListSettleable(r.Context())
	if err != nil {
		zap.L().Error("list settleable failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "settlement/list-failed", "Failed to list settleable transfers")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"transfers": ids})
}
