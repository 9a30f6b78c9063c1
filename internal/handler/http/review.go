package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/service"
	"github.com/curatedcode/toshi-sub000/pkg/httputil"
	"github.com/curatedcode/toshi-sub000/pkg/middleware"
	"github.com/curatedcode/toshi-sub000/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	Rating float64 `json:"rating" validate:"gte=0,lte=5"`
	Title  string  `json:"title" validate:"required,min=1,max=200"`
	Body   string  `json:"body" validate:"max=5000"`
}

// ListReviews handles GET /api/v1/products/{productId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	page := 1
	perPage := domain.DefaultPerPage
	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid positive integer"},
			})
			return
		}
		perPage = pp
	}

	reviews, total, err := h.service.ListReviews(r.Context(), productID.String(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(reviews, total, page, perPage))
}

// CreateReview handles POST /api/v1/products/{productId}/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
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

	input := &service.CreateReviewInput{
		ProductID: productID.String(),
		UserID:    middleware.UserIDFromContext(r.Context()),
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
	}

	review, err := h.service.CreateReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// GetSummary handles GET /api/v1/products/{productId}/reviews/summary
func (h *ReviewHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	summary, err := h.service.GetSummary(r.Context(), productID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}
