package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skillexchange/exchange-service/internal/repository"
	"github.com/skillexchange/exchange-service/internal/service"
	"github.com/skillexchange/exchange-service/pkg/httputil"
	"github.com/skillexchange/exchange-service/pkg/middleware"
	"github.com/skillexchange/exchange-service/pkg/validator"
)

// ExchangeHandler handles HTTP requests for exchange endpoints.
type ExchangeHandler struct {
	service *service.ExchangeService
	logger  *slog.Logger
}

// NewExchangeHandler creates a new exchange HTTP handler.
func NewExchangeHandler(svc *service.ExchangeService, logger *slog.Logger) *ExchangeHandler {
	return &ExchangeHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateExchangeRequest is the JSON request body for requesting an exchange.
type CreateExchangeRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
}

// RespondRequest is the JSON request body for a decision on a pending exchange.
type RespondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accepted rejected"`
}

// RateRequest is the JSON request body for rating a completed exchange.
type RateRequest struct {
	Score   int    `json:"score" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// --- Handlers ---

// CreateExchange handles POST /api/v1/exchanges
func (h *ExchangeHandler) CreateExchange(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	exchange, err := h.service.CreateExchange(r.Context(), service.CreateExchangeInput{
		RequesterID: middleware.UserIDFromContext(r.Context()),
		ListingID:   req.ListingID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: exchange})
}

// ListMyExchanges handles GET /api/v1/exchanges
func (h *ExchangeHandler) ListMyExchanges(w http.ResponseWriter, r *http.Request) {
	filter := repository.ExchangeFilter{
		UserID:    middleware.UserIDFromContext(r.Context()),
		Direction: repository.DirectionAll,
		Page:      1,
		PerPage:   20,
	}

	if v := r.URL.Query().Get("direction"); v != "" {
		filter.Direction = v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}
	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		filter.Page = page
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		filter.PerPage = perPage
	}

	exchanges, total, err := h.service.ListMyExchanges(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(exchanges, total, filter.Page, filter.PerPage))
}

// Respond handles POST /api/v1/exchanges/{id}/respond
func (h *ExchangeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	exchange, err := h.service.RespondToExchange(r.Context(), service.RespondToExchangeInput{
		ExchangeID: id.String(),
		UserID:     middleware.UserIDFromContext(r.Context()),
		Decision:   req.Decision,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: exchange})
}

// Complete handles POST /api/v1/exchanges/{id}/complete
func (h *ExchangeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	exchange, err := h.service.CompleteExchange(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: exchange})
}

// Rate handles POST /api/v1/exchanges/{id}/ratings
func (h *ExchangeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rating, err := h.service.SubmitRating(r.Context(), service.SubmitRatingInput{
		ExchangeID: id.String(),
		RaterID:    middleware.UserIDFromContext(r.Context()),
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: rating})
}

// RatingSummary handles GET /api/v1/users/{id}/ratings/summary
func (h *ExchangeHandler) RatingSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	summary, err := h.service.RatingSummary(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}
