package handler

import (
	"net/http"
	"net/url"

	"stockroom/internal/model"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /orders requests. Every placement failure caused by
// the request itself is a 400 carrying the specific reason.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, h.logger)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), &req)
	if err != nil {
		status := statusFor(err)
		if model.ErrorCode(err) == model.ErrCodeProductNotFound {
			status = http.StatusBadRequest
		}
		writeServiceError(w, r, err, status, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, statusFor(err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// ListByCustomer handles GET /orders/customer/{name} requests.
func (h *OrderHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	orders, err := h.service.ListByCustomer(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err, statusFor(err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, statusFor(err), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		status := statusFor(err)
		if model.ErrorCode(err) == model.ErrCodeProductNotFound {
			// The order exists; its restore target does not.
			status = http.StatusConflict
		}
		writeServiceError(w, r, err, status, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// orderID parses the {id} path parameter. An unparseable ID cannot name an
// order, so it is answered as not found.
func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeServiceError(w, r, model.NewOrderNotFoundError(raw), http.StatusNotFound, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
