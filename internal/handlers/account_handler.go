package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bankcore/internal/models"
	"bankcore/internal/services"
	"bankcore/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type AccountHandler struct {
	accountService *services.AccountService
	logger         zerolog.Logger
}

func NewAccountHandler(store storage.Store, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: services.NewAccountService(store, logger),
		logger:         logger,
	}
}

func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	account, err := h.accountService.Open(r.Context(), req.InitialBalance)
	if err != nil {
		if errors.Is(err, services.ErrNegativeOpeningBalance) {
			h.respondWithError(w, http.StatusBadRequest, "invalid_initial_balance", err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Failed to open account")
		h.respondWithError(w, http.StatusInternalServerError, "account_creation_failed", "Failed to open account")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["id"]

	account, err := h.accountService.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			h.respondWithError(w, http.StatusNotFound, "account_not_found", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch account")
		return
	}

	h.respondWithJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["id"]

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	transactions, err := h.accountService.Transactions(r.Context(), accountID, limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			h.respondWithError(w, http.StatusNotFound, "account_not_found", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account transactions")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch account transactions")
		return
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	h.respondWithJSON(w, http.StatusOK, transactions)
}

func (h *AccountHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *AccountHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
