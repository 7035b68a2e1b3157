package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/service"
	apperrors "github.com/utafrali/mongomart/pkg/errors"
	"github.com/utafrali/mongomart/pkg/httputil"
	"github.com/utafrali/mongomart/pkg/validator"
)

// CatalogHandler handles HTTP requests for the catalog endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request / Response DTOs ---

// AddReviewRequest is the JSON request body for posting a review.
type AddReviewRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Comment string `json:"comment" validate:"max=2000"`
	Stars   int    `json:"stars" validate:"required,min=1,max=5"`
}

// ItemListResponse is one page of a listing or search.
type ItemListResponse struct {
	Category   string        `json:"category,omitempty"`
	Query      string        `json:"query,omitempty"`
	Items      []domain.Item `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	NumPages   int           `json:"num_pages"`
	HasNext    bool          `json:"has_next"`
	HasPrev    bool          `json:"has_prev"`
}

func newItemListResponse(page service.ItemPage) ItemListResponse {
	return ItemListResponse{
		Items:      page.Data,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PerPage:    page.PerPage,
		NumPages:   page.NumPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}
}

// --- Handlers ---

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, counts)
}

// ListItems handles GET /api/v1/items?category=All&page=0
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}
	filter := domain.ParseCategoryFilter(r.URL.Query().Get("category"))

	result, err := h.service.ListItems(r.Context(), filter, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := newItemListResponse(result)
	resp.Category = filter.String()
	httputil.WriteData(w, http.StatusOK, resp)
}

// Search handles GET /api/v1/search?query=...&page=0
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("query")

	result, err := h.service.Search(r.Context(), query, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := newItemListResponse(result)
	resp.Query = query
	httputil.WriteData(w, http.StatusOK, resp)
}

// GetItem handles GET /api/v1/items/{itemId}
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseIntParam(w, "item id", chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	detail, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}

// AddReview handles POST /api/v1/items/{itemId}/reviews
func (h *CatalogHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseIntParam(w, "item id", chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	var req AddReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.AddReview(r.Context(), service.AddReviewInput{
		ItemID:  id,
		Name:    req.Name,
		Comment: req.Comment,
		Stars:   req.Stars,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !result.Applied {
		httputil.WriteError(w, r, apperrors.NotFound("item", strconv.Itoa(id)), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, result.Review)
}

// pageParam reads the zero-based page query value. A missing value is page
// 0; a malformed one is rejected with 400.
func pageParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 0, true
	}
	page, ok := httputil.ParseIntParam(w, "page", v)
	if !ok {
		return 0, false
	}
	if page < 0 {
		page = 0
	}
	return page, true
}
