package handler

import (
	"net/http"

	"github.com/ayo6706/ledger-transfers/internal/service"
	"go.uber.org/zap"
)

type PositionHandler struct {
	svc *service.PositionService
}

func NewPositionHandler(svc *service.PositionService) *PositionHandler {
	return &PositionHandler{svc: svc}
}

// Get handles GET /v1/positions.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.Positions(r.Context())
	if err != nil {
		zap.L().Error("get positions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "position/read-failed", "Failed to calculate positions")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"positions": positions})
}

// GetFees handles GET /v1/positions/fees.
func (h *PositionHandler) GetFees(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.FeePositions(r.Context())
	if err != nil {
		zap.L().Error("get fee positions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "position/read-failed", "Failed to calculate fee positions")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"positions": positions})
}
