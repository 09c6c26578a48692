package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bankcore/internal/events"
	"bankcore/internal/models"
	"bankcore/internal/services"
	"bankcore/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const notifyTimeout = 2 * time.Second

type TransferHandler struct {
	transferService *services.TransferService
	notifier        events.Notifier
	logger          zerolog.Logger
	timeout         time.Duration
}

func NewTransferHandler(store storage.Store, notifier events.Notifier, logger zerolog.Logger, timeout time.Duration) *TransferHandler {
	return &TransferHandler{
		transferService: services.NewTransferService(store, logger),
		notifier:        notifier,
		logger:          logger,
		timeout:         timeout,
	}
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	transaction, err := h.transferService.Transfer(ctx, req.SenderAccountID, req.ReceiverAccountID, req.Amount)
	if err != nil {
		h.respondWithTransferError(w, err)
		return
	}

	// fire-and-forget, detached from the request lifetime
	go h.notify(transaction.ID)

	h.respondWithJSON(w, http.StatusCreated, transaction)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	transactionID := vars["id"]

	transaction, err := h.transferService.Transaction(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			h.respondWithError(w, http.StatusNotFound, "transaction_not_found", "Transaction not found")
			return
		}
		h.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to fetch transaction")
		h.respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch transaction")
		return
	}

	h.respondWithJSON(w, http.StatusOK, transaction)
}

func (h *TransferHandler) notify(transactionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := h.notifier.TransactionSent(ctx, transactionID); err != nil {
		h.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("Transfer notification failed")
	}
}

func (h *TransferHandler) respondWithTransferError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidTransfer):
		h.respondWithError(w, http.StatusBadRequest, "invalid_transfer", err.Error())
	case errors.Is(err, services.ErrAccountNotFound):
		h.respondWithError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		h.respondWithError(w, http.StatusUnprocessableEntity, "insufficient_balance", "Sender has insufficient balance")
	case errors.Is(err, services.ErrTransferConflictExhausted):
		h.respondWithError(w, http.StatusConflict, "transfer_conflict", "Transfer aborted under contention, please retry")
	case errors.Is(err, services.ErrTransferTimeout):
		h.respondWithError(w, http.StatusGatewayTimeout, "transfer_timeout", "Transfer deadline exceeded")
	default:
		h.logger.Error().Err(err).Msg("Transfer failed")
		h.respondWithError(w, http.StatusInternalServerError, "transfer_failed", "Transfer failed")
	}
}

func (h *TransferHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *TransferHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
