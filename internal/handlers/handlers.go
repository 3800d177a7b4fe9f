package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

const defaultHistoryLimit = 50

// Handler contains HTTP handlers for the API
type Handler struct {
	ticketService service.TicketService
}

// NewHandler creates a new Handler instance
func NewHandler(ticketService service.TicketService) *Handler {
	return &Handler{
		ticketService: ticketService,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto status codes. Unknown
// errors are reported without detail.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrTicketNotFound):
		respondError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, service.ErrAlreadyTicketed):
		respondError(w, http.StatusConflict, "User already holds a ticket, change the seat instead")
	case errors.Is(err, service.ErrSeatNotReleased):
		respondError(w, http.StatusConflict, "Seat could not be released, try again later")
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// respondTicket writes a purchase or seat change result
func respondTicket(w http.ResponseWriter, resp *models.TicketResponse) {
	if resp.TransactionStatus != models.TransactionSuccess {
		respondJSON(w, http.StatusBadRequest, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func userIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["userId"])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// PurchaseTicket handles POST /api/train/purchase
func (h *Handler) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.SeatID = strings.TrimSpace(req.SeatID)
	if req.UserID <= 0 {
		respondError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if req.SeatID == "" {
		respondError(w, http.StatusBadRequest, "Seat ID is required")
		return
	}

	resp, err := h.ticketService.PurchaseTicket(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondTicket(w, resp)
}

// GetReceipt handles GET /api/train/receipt/{userId}
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	ticket, err := h.ticketService.Receipt(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ticket)
}

// GetUser handles GET /api/train/user/{userId}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.ticketService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// GetHistory handles GET /api/train/user/{userId}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Limit must be a positive number")
			return
		}
		limit = n
	}

	entries, err := h.ticketService.History(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// DeleteUser handles DELETE /api/train/user/{userId}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.ticketService.DeleteUser(r.Context(), userID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ModifySeat handles PUT /api/train/user/{userId}/seat
func (h *Handler) ModifySeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req models.ModifySeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SeatID = strings.TrimSpace(req.SeatID)
	if req.SeatID == "" {
		respondError(w, http.StatusBadRequest, "Seat ID is required")
		return
	}

	resp, err := h.ticketService.ModifySeat(r.Context(), userID, req.SeatID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondTicket(w, resp)
}

// ListUsers handles GET /api/train/user
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ticketService.ListUsers(r.Context()))
}

// ListSeats handles GET /api/train/seat
func (h *Handler) ListSeats(w http.ResponseWriter, r *http.Request) {
	section := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("section")))
	respondJSON(w, http.StatusOK, h.ticketService.ListSeats(r.Context(), section))
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
