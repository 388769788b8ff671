package handler

import (
	"errors"
	"net/http"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// Create handles POST /products requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, h.logger)
		return
	}

	product, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// List handles GET /products requests.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Update handles PUT /products/{id} requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd model.ProductUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, h.logger)
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id} requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// fail writes err. Catalogue lookups answer with a fixed not-found message.
func (h *ProductHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, model.ErrProductNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, model.ErrProductNotFound.Message, h.logger)
		return
	}
	writeServiceError(w, r, err, statusFor(err), h.logger)
}
