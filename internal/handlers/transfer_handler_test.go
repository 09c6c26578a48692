package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankcore/internal/events"
	"bankcore/internal/models"
	"bankcore/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	sent chan string
}

func (n *recordingNotifier) TransactionSent(ctx context.Context, transactionID string) error {
	n.sent <- transactionID
	return nil
}

type failingNotifier struct{}

func (failingNotifier) TransactionSent(ctx context.Context, transactionID string) error {
	return errors.New("pubsub down")
}

func newTransferTestRouter(store storage.Store, notifier events.Notifier) *mux.Router {
	h := NewTransferHandler(store, notifier, zerolog.Nop(), time.Second)
	r := mux.NewRouter()
	r.HandleFunc("/transfers", h.Create).Methods("POST")
	r.HandleFunc("/transfers/{id}", h.Get).Methods("GET")
	return r
}

func seedAccount(t *testing.T, store storage.Store, balance int64) *models.Account {
	t.Helper()
	acc, err := store.CreateAccount(context.Background(), balance)
	require.NoError(t, err)
	return acc
}

func postTransfer(t *testing.T, r *mux.Router, body models.TransferRequest) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTransferHandlerCreate(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{sent: make(chan string, 1)}
	r := newTransferTestRouter(store, notifier)

	sender := seedAccount(t, store, 1000)
	receiver := seedAccount(t, store, 0)

	rec := postTransfer(t, r, models.TransferRequest{
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		Amount:            400,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, int64(400), tx.Amount)

	select {
	case id := <-notifier.sent:
		assert.Equal(t, tx.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not invoked")
	}

	got, err := store.GetAccount(context.Background(), sender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.Balance)
}

func TestTransferHandlerNotifierFailureDoesNotAffectResponse(t *testing.T) {
	store := storage.NewMemoryStore()
	r := newTransferTestRouter(store, failingNotifier{})

	sender := seedAccount(t, store, 1000)
	receiver := seedAccount(t, store, 0)

	rec := postTransfer(t, r, models.TransferRequest{
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		Amount:            100,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	got, err := store.GetAccount(context.Background(), sender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), got.Balance)
}

func TestTransferHandlerErrorMapping(t *testing.T) {
	store := storage.NewMemoryStore()
	r := newTransferTestRouter(store, failingNotifier{})

	sender := seedAccount(t, store, 100)
	receiver := seedAccount(t, store, 0)

	tests := []struct {
		name       string
		req        models.TransferRequest
		wantStatus int
		wantError  string
	}{
		{
			name:       "self transfer",
			req:        models.TransferRequest{SenderAccountID: sender.ID, ReceiverAccountID: sender.ID, Amount: 10},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_transfer",
		},
		{
			name:       "non-positive amount",
			req:        models.TransferRequest{SenderAccountID: sender.ID, ReceiverAccountID: receiver.ID, Amount: 0},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_transfer",
		},
		{
			name:       "unknown sender",
			req:        models.TransferRequest{SenderAccountID: "missing", ReceiverAccountID: receiver.ID, Amount: 10},
			wantStatus: http.StatusNotFound,
			wantError:  "account_not_found",
		},
		{
			name:       "insufficient balance",
			req:        models.TransferRequest{SenderAccountID: sender.ID, ReceiverAccountID: receiver.ID, Amount: 500},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "insufficient_balance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postTransfer(t, r, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestTransferHandlerGet(t *testing.T) {
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{sent: make(chan string, 1)}
	r := newTransferTestRouter(store, notifier)

	sender := seedAccount(t, store, 1000)
	receiver := seedAccount(t, store, 0)

	rec := postTransfer(t, r, models.TransferRequest{
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		Amount:            100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest(http.MethodGet, "/transfers/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusOK, getRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/transfers/does-not-exist", nil)
	getRec = httptest.NewRecorder()
	r.ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}
