package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/ledger-transfers/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Create handles POST /v1/accounts.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	account, err := h.svc.Create(r.Context(), req.Name)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create account failed", zap.Error(err), zap.String("name", req.Name))
		RespondError(w, r, http.StatusInternalServerError, "account/create-failed", "Failed to create account")
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

// Get handles GET /v1/accounts/{name}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	account, err := h.svc.Get(r.Context(), name)
	if err != nil {
		if status, pType, msg, ok := mapDomainError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("get account failed", zap.Error(err), zap.String("name", name))
		RespondError(w, r, http.StatusInternalServerError, "account/read-failed", "Failed to read account")
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// List handles GET /v1/accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context())
	if err != nil {
		zap.L().Error("list accounts failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "account/list-failed", "Failed to list accounts")
		return
	}
	RespondJSON(w, http.StatusOK, accounts)
}
