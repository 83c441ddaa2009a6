package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront-cart/internal/service"
	apperrors "github.com/utafrali/storefront-cart/pkg/errors"
	"github.com/utafrali/storefront-cart/pkg/httputil"
	"github.com/utafrali/storefront-cart/pkg/middleware"
	"github.com/utafrali/storefront-cart/pkg/pagination"
	"github.com/utafrali/storefront-cart/pkg/validator"
)

// CartHandler handles HTTP requests for cart and wishlist endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body sent by the product page.
type AddItemRequest struct {
	ProductID     string           `json:"productId" validate:"required,max=128"`
	Name          string           `json:"name" validate:"required,min=1,max=500"`
	Image         string           `json:"image" validate:"max=2048"`
	Category      string           `json:"category" validate:"max=200"`
	Brand         string           `json:"brand" validate:"max=200"`
	Price         decimal.Decimal  `json:"price" validate:"gte=0"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	Quantity      int              `json:"quantity" validate:"required,gte=1,lte=999"`
	MaxQuantity   int              `json:"maxQuantity" validate:"gte=0"`
	InStock       *bool            `json:"inStock"`
	Color         string           `json:"color" validate:"max=64"`
	Size          string           `json:"size" validate:"max=64"`
	Fabric        string           `json:"fabric" validate:"max=64"`
	Discount      *decimal.Decimal `json:"discount"`
}

// SetQuantityRequest is the JSON request body for changing a line quantity.
// Out-of-range values are clamped, not rejected.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	state, err := h.service.Load(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.AddItem(r.Context(), sessionID, service.AddItemInput{
		ProductID:     req.ProductID,
		Name:          req.Name,
		Image:         req.Image,
		Category:      req.Category,
		Brand:         req.Brand,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Quantity:      req.Quantity,
		MaxQuantity:   req.MaxQuantity,
		InStock:       req.InStock,
		Color:         req.Color,
		Size:          req.Size,
		Fabric:        req.Fabric,
		Discount:      req.Discount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// SetQuantity handles PUT /api/v1/cart/items/{lineId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	lineID := chi.URLParam(r, "lineId")

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadBody(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	state, err := h.service.SetQuantity(r.Context(), sessionID, lineID, *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// RemoveItem handles DELETE /api/v1/cart/items/{lineId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	state, err := h.service.RemoveItem(r.Context(), sessionID, chi.URLParam(r, "lineId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// ClearCart handles DELETE /api/v1/cart?confirm=true
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	if r.URL.Query().Get("confirm") != "true" {
		httputil.WriteError(w, r, apperrors.ConfirmationRequired("clearing the cart requires confirm=true"), h.logger)
		return
	}

	state, err := h.service.Clear(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// ToggleWishlist handles POST /api/v1/cart/items/{lineId}/wishlist
func (h *CartHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	res, err := h.service.ToggleWishlist(r.Context(), sessionID, chi.URLParam(r, "lineId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// GetWishlist handles GET /api/v1/wishlist
func (h *CartHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	page, err := h.service.LoadWishlist(r.Context(), sessionID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

func writeBadBody(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
	})
}
