package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/returns"
)

// UpdateReturnStatusRequest drives every return transition. APPROVED,
// REJECTED and CANCELLED resolve a pending return; REFUNDED and EXCHANGED
// process an approved one.
type UpdateReturnStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED CANCELLED REFUNDED EXCHANGED"`
}

type ReturnHandler struct {
	service  returns.Service
	validate *validator.Validate
}

func NewReturnHandler(service returns.Service) *ReturnHandler {
	return &ReturnHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *ReturnHandler) RegisterRoutes(router chi.Router) {
	router.Route("/returns", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/number/{number}", h.handleGetByNumber)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/status", h.handleUpdateStatus)
		})
	})
}

func (h *ReturnHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input returns.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create return request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err, "Failed to create return")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ReturnHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := returns.ListFilter{
		Status: returns.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("saleId"); raw != "" {
		saleID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid saleId parameter")
			return
		}
		filter.SaleID = &saleID
	}

	rets, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "Failed to list returns")
		return
	}
	respondWithJSON(w, http.StatusOK, rets)
}

func (h *ReturnHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	ret, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get return")
		return
	}
	respondWithJSON(w, http.StatusOK, ret)
}

func (h *ReturnHandler) handleGetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		respondWithError(w, http.StatusBadRequest, "Number parameter cannot be empty")
		return
	}

	ret, err := h.service.GetByNumber(r.Context(), number)
	if err != nil {
		respondServiceError(w, err, "Failed to get return by number")
		return
	}
	respondWithJSON(w, http.StatusOK, ret)
}

func (h *ReturnHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateReturnStatusRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode return status request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	var updated *returns.Return
	switch returns.Status(requestPayload.Status) {
	case returns.StatusApproved:
		updated, err = h.service.Approve(r.Context(), id)
	case returns.StatusRejected:
		updated, err = h.service.Reject(r.Context(), id)
	case returns.StatusCancelled:
		updated, err = h.service.Cancel(r.Context(), id)
	case returns.StatusRefunded:
		updated, err = h.service.Refund(r.Context(), id)
	case returns.StatusExchanged:
		updated, err = h.service.Exchange(r.Context(), id)
	}
	if err != nil {
		respondServiceError(w, err, "Failed to update return status")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}
