package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/sale"
)

type UpdateSaleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=COMPLETED CANCELLED"`
}

type UpdateDeliveryRequest struct {
	DeliveryStatus string `json:"deliveryStatus" validate:"required,oneof=NOT_SHIPPED SHIPPED DELIVERED"`
}

type ApplyCouponRequest struct {
	CouponCode string `json:"couponCode" validate:"required,min=1,max=64"`
}

type SaleHandler struct {
	service  sale.Service
	validate *validator.Validate
}

func NewSaleHandler(service sale.Service) *SaleHandler {
	return &SaleHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *SaleHandler) RegisterRoutes(router chi.Router) {
	router.Route("/sales", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/number/{number}", h.handleGetByNumber)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/status", h.handleUpdateStatus)
			r.Post("/pay", h.handlePay)
			r.Patch("/deliver", h.handleUpdateDelivery)
			r.Post("/promotions", h.handleApplyCoupon)
			r.Post("/promotions/auto", h.handleApplyAuto)
			r.Delete("/promotions/{promotionID}", h.handleRemovePromotion)
		})
	})
}

func (h *SaleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	// The service input doubles as the request payload; item and amount
	// rules live in the sale service.
	var input sale.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create sale request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Failed to create sale")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *SaleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := sale.ListFilter{
		Status: sale.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("customerId"); raw != "" {
		customerID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid customerId parameter")
			return
		}
		filter.CustomerID = &customerID
	}

	from, err := queryTime(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.From, filter.To = from, to

	sales, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "Failed to list sales")
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

func (h *SaleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	s, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get sale")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleGetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		respondWithError(w, http.StatusBadRequest, "Number parameter cannot be empty")
		return
	}

	s, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		respondServiceError(w, err, "Failed to get sale by number")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateSaleStatusRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode sale status request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	var updated *sale.Sale
	switch sale.Status(requestPayload.Status) {
	case sale.StatusCompleted:
		updated, err = h.service.Complete(r.Context(), id)
	case sale.StatusCancelled:
		updated, err = h.service.Cancel(r.Context(), id)
	}
	if err != nil {
		respondServiceError(w, err, "Failed to update sale status")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *SaleHandler) handlePay(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	s, err := h.service.MarkPaid(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to mark sale paid")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateDeliveryRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode delivery status request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	s, err := h.service.UpdateDelivery(r.Context(), id, sale.DeliveryStatus(requestPayload.DeliveryStatus))
	if err != nil {
		respondServiceError(w, err, "Failed to update delivery status")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload ApplyCouponRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode apply coupon request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	s, err := h.service.ApplyCoupon(r.Context(), id, requestPayload.CouponCode)
	if err != nil {
		respondServiceError(w, err, "Failed to apply coupon")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleApplyAuto(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	s, err := h.service.ApplyAuto(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to auto-apply promotion")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *SaleHandler) handleRemovePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}
	promotionID, err := parseIDParam(r, "promotionID")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid promotion id parameter")
		return
	}

	s, err := h.service.RemovePromotion(r.Context(), id, promotionID)
	if err != nil {
		respondServiceError(w, err, "Failed to remove promotion")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}
