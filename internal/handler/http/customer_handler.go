package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/customer"
)

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
	Type    string `json:"type" validate:"omitempty,oneof=REGULAR VIP PREMIUM"`
}

type UpdateCustomerRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=32"`
	Address string `json:"address" validate:"max=500"`
	Type    string `json:"type" validate:"required,oneof=REGULAR VIP PREMIUM"`
}

type CustomerHandler struct {
	service  customer.Service
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Route("/customers", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/email/{email}", h.handleGetByEmail)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

func (h *CustomerHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCustomerRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create customer request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	cust := customer.Customer{
		Name:    requestPayload.Name,
		Email:   requestPayload.Email,
		Phone:   requestPayload.Phone,
		Address: requestPayload.Address,
		Type:    customer.Type(requestPayload.Type),
	}

	created, err := h.service.Create(r.Context(), &cust)
	if err != nil {
		respondServiceError(w, err, "Failed to create customer")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CustomerHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := customer.ListFilter{
		Type:   customer.Type(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	customers, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "Failed to list customers")
		return
	}
	respondWithJSON(w, http.StatusOK, customers)
}

func (h *CustomerHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	cust, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get customer")
		return
	}
	respondWithJSON(w, http.StatusOK, cust)
}

func (h *CustomerHandler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "Email parameter cannot be empty")
		return
	}

	cust, err := h.service.GetByEmail(r.Context(), email)
	if err != nil {
		respondServiceError(w, err, "Failed to get customer by email")
		return
	}
	respondWithJSON(w, http.StatusOK, cust)
}

func (h *CustomerHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateCustomerRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update customer request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	cust := customer.Customer{
		ID:      id,
		Name:    requestPayload.Name,
		Email:   requestPayload.Email,
		Phone:   requestPayload.Phone,
		Address: requestPayload.Address,
		Type:    customer.Type(requestPayload.Type),
	}

	updated, err := h.service.Update(r.Context(), &cust)
	if err != nil {
		respondServiceError(w, err, "Failed to update customer")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CustomerHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
