package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	"github.com/curatedcode/toshi-sub000/internal/service"
	"github.com/curatedcode/toshi-sub000/pkg/httputil"
	"github.com/curatedcode/toshi-sub000/pkg/validator"
)

// ProductHandler handles HTTP requests for product and search endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=500"`
	Description string   `json:"description"`
	CompanyID   string   `json:"company_id" validate:"required,uuid"`
	Price       string   `json:"price" validate:"required"`
	Quantity    int      `json:"quantity" validate:"gte=0"`
	CategoryIDs []string `json:"category_ids" validate:"omitempty,dive,uuid"`
}

// UpdateProductRequest is the JSON request body for updating a product.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=500"`
	Description *string  `json:"description"`
	Price       *string  `json:"price"`
	Quantity    *int     `json:"quantity" validate:"omitempty,gte=0"`
	CategoryIDs []string `json:"category_ids" validate:"omitempty,dive,uuid"`
}

// AddImageRequest is the JSON request body for attaching a product image.
type AddImageRequest struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// --- Handlers ---

// SearchProducts handles GET /api/v1/products
// It runs the storefront search: text matching, price and rating filters,
// category facets, and pagination.
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery

	query := r.URL.Query()
	q.Text = query.Get("q")
	q.Category = query.Get("category")
	q.SortBy = query.Get("sort_by")

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		q.Page = page
	}
	if v := query.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > domain.DefaultPerPage {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and " + strconv.Itoa(domain.DefaultPerPage)},
			})
			return
		}
		q.PerPage = perPage
	}
	if v := query.Get("min_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must be a valid number"},
			})
			return
		}
		q.MinPrice = &price
	}
	if v := query.Get("max_price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "max_price must be a valid number"},
			})
			return
		}
		q.MaxPrice = &price
	}
	if v := query.Get("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "rating must be a valid number"},
			})
			return
		}
		q.MinRating = rating
	}
	if v := query.Get("include_out_of_stock"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "include_out_of_stock must be true or false"},
			})
			return
		}
		q.IncludeOutOfStock = include
	}

	result, err := h.service.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetProduct handles GET /api/v1/products/{slug}
// Returns an enriched product detail including images, categories, company,
// and the review summary.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product slug is required"},
		})
		return
	}

	detail, err := h.service.GetProductDetail(r.Context(), slug)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
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

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "price must be a valid number"},
		})
		return
	}

	input := &service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   req.CompanyID,
		Price:       price,
		Quantity:    req.Quantity,
		CategoryIDs: req.CategoryIDs,
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
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

	input := &service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		CategoryIDs: req.CategoryIDs,
	}

	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "price must be a valid number"},
			})
			return
		}
		input.Price = &price
	}

	product, err := h.service.UpdateProduct(r.Context(), id.String(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}

// AddProductImage handles POST /api/v1/products/{id}/images
func (h *ProductHandler) AddProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddImageRequest
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

	img, err := h.service.AddProductImage(r.Context(), id.String(), req.URL, req.AltText, req.SortOrder)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: img})
}
