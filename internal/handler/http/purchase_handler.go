package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/purchase"
)

// UpdateOrderStatusRequest drives the approve/send/cancel transitions.
// DELIVERED is not accepted here; an order becomes delivered by receiving
// its items.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED SENT CANCELLED"`
}

type ReceiveItemsRequest struct {
	Items []purchase.Receipt `json:"items" validate:"required,min=1,dive"`
}

type PurchaseOrderHandler struct {
	service  purchase.Service
	validate *validator.Validate
}

func NewPurchaseOrderHandler(service purchase.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router chi.Router) {
	router.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/number/{number}", h.handleGetByNumber)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Patch("/status", h.handleUpdateStatus)
			r.Post("/receive", h.handleReceive)
		})
	})
}

func (h *PurchaseOrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input purchase.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create purchase order request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Failed to create purchase order")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *PurchaseOrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := purchase.ListFilter{
		Status: purchase.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("supplierId"); raw != "" {
		supplierID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid supplierId parameter")
			return
		}
		filter.SupplierID = &supplierID
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "Failed to list purchase orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *PurchaseOrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get purchase order")
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

func (h *PurchaseOrderHandler) handleGetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		respondWithError(w, http.StatusBadRequest, "Number parameter cannot be empty")
		return
	}

	order, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		respondServiceError(w, err, "Failed to get purchase order by number")
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

func (h *PurchaseOrderHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var input purchase.UpdateInput
	if err := decodeJSON(r, &input); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update purchase order request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, err, "Failed to update purchase order")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *PurchaseOrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode purchase order status request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	var updated *purchase.PurchaseOrder
	switch purchase.Status(requestPayload.Status) {
	case purchase.StatusApproved:
		updated, err = h.service.Approve(r.Context(), id)
	case purchase.StatusSent:
		updated, err = h.service.Send(r.Context(), id)
	case purchase.StatusCancelled:
		updated, err = h.service.Cancel(r.Context(), id)
	}
	if err != nil {
		respondServiceError(w, err, "Failed to update purchase order status")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *PurchaseOrderHandler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload ReceiveItemsRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode receive items request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	order, err := h.service.Receive(r.Context(), id, requestPayload.Items)
	if err != nil {
		respondServiceError(w, err, "Failed to receive purchase order items")
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

func (h *PurchaseOrderHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete purchase order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
