package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/ledger-transfers/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TransferHandler struct {
	svc *service.TransferService
}

func NewTransferHandler(svc *service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Prepare handles PUT /v1/transfers/{id}. The client chooses the id, so a
// retried request is answered with the existing transfer instead of a
// conflict.
func (h *TransferHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	var req service.PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	urlID := chi.URLParam(r, "id")
	if req.ID == "" {
		req.ID = urlID
	}
	if req.ID != urlID {
		RespondError(w, r, http.StatusBadRequest, "request/id-mismatch", "body id does not match URL id")
		return
	}

	transfer, existed, err := h.svc.Prepare(r.Context(), req)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("prepare transfer failed", zap.Error(err), zap.String("transfer_id", req.ID))
		RespondError(w, r, http.StatusInternalServerError, "transfer/prepare-failed", "Failed to prepare transfer")
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	RespondJSON(w, status, transfer)
}

// Get handles GET /v1/transfers/{id}.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get transfer failed", zap.Error(err), zap.String("transfer_id", chi.URLParam(r, "id")))
		RespondError(w, r, http.StatusInternalServerError, "transfer/read-failed", "Failed to read transfer")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

// Fulfill handles PUT /v1/transfers/{id}/fulfillment. The body is the raw
// fulfillment URI, text/plain.
func (h *TransferHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}
	fulfillment := strings.TrimSpace(string(body))

	transfer, err := h.svc.Fulfill(r.Context(), chi.URLParam(r, "id"), fulfillment)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("fulfill transfer failed", zap.Error(err), zap.String("transfer_id", chi.URLParam(r, "id")))
		RespondError(w, r, http.StatusInternalServerError, "transfer/fulfill-failed", "Failed to fulfill transfer")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

// GetFulfillment handles GET /v1/transfers/{id}/fulfillment, returning the
// fulfillment URI as text/plain.
func (h *TransferHandler) GetFulfillment(w http.ResponseWriter, r *http.Request) {
	fulfillment, err := h.svc.GetFulfillment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get fulfillment failed", zap.Error(err), zap.String("transfer_id", chi.URLParam(r, "id")))
		RespondError(w, r, http.StatusInternalServerError, "transfer/fulfillment-read-failed", "Failed to read fulfillment")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fulfillment))
}

// Reject handles PUT /v1/transfers/{id}/rejection. The body is the rejection
// message, text/plain.
func (h *TransferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	transfer, err := h.svc.Reject(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(string(body)))
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("reject transfer failed", zap.Error(err), zap.String("transfer_id", chi.URLParam(r, "id")))
		RespondError(w, r, http.StatusInternalServerError, "transfer/reject-failed", "Failed to reject transfer")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

// SweepExpired handles POST /v1/transfers/expired, running one expiry sweep
// on demand.
func (h *TransferHandler) SweepExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RejectExpired(r.Context())
	if err != nil {
		zap.L().Error("expiry sweep failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transfer/expiry-sweep-failed", "Failed to sweep expired transfers")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
