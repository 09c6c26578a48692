package router

import (
	"net/http"
	"time"

	"bankcore/internal/events"
	"bankcore/internal/handlers"
	"bankcore/internal/middleware"
	"bankcore/internal/storage"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

func SetupRouter(store storage.Store, notifier events.Notifier, logger zerolog.Logger, transferTimeout time.Duration) *mux.Router {
	accountHandler := handlers.NewAccountHandler(store, logger)
	transferHandler := handlers.NewTransferHandler(store, notifier, logger, transferTimeout)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(10), 20)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(rateLimiter.Middleware())

	api := r.PathPrefix("/api/v1").Subrouter()

	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.Use(middleware.RequestValidation())
	accounts.HandleFunc("", accountHandler.Open).Methods("POST")
	accounts.HandleFunc("/{id}", accountHandler.Get).Methods("GET")
	accounts.HandleFunc("/{id}/transactions", accountHandler.Transactions).Methods("GET")

	transfers := api.PathPrefix("/transfers").Subrouter()
	transfers.Use(middleware.RequestValidation())
	transfers.HandleFunc("", transferHandler.Create).Methods("POST")
	transfers.HandleFunc("/{id}", transferHandler.Get).Methods("GET")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}
