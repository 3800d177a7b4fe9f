package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/srivastava-utkarsh/ticket-booking/internal/handlers"
	"github.com/srivastava-utkarsh/ticket-booking/internal/middleware"
	"github.com/srivastava-utkarsh/ticket-booking/internal/websocket"
)

// SetupRouter creates and configures the HTTP router. The rate limiter
// guards the routes that move money or seats.
func SetupRouter(h *handlers.Handler, hub *websocket.Hub, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api/train").Subrouter()

	// Reads
	api.HandleFunc("/receipt/{userId}", h.GetReceipt).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/user", h.ListUsers).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/user/{userId}", h.GetUser).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/user/{userId}/history", h.GetHistory).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/seat", h.ListSeats).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for real-time seat updates
	if hub != nil {
		api.HandleFunc("/seat/ws", hub.ServeWS)
	}

	// Writes
	writes := api.NewRoute().Subrouter()
	if limiter != nil {
		writes.Use(limiter.Middleware)
	}
	writes.HandleFunc("/purchase", h.PurchaseTicket).Methods(http.MethodPost, http.MethodOptions)
	writes.HandleFunc("/user/{userId}/seat", h.ModifySeat).Methods(http.MethodPut, http.MethodOptions)
	writes.HandleFunc("/user/{userId}", h.DeleteUser).Methods(http.MethodDelete, http.MethodOptions)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
