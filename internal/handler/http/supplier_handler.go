package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/supplier"
)

type SupplierRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	ContactName string `json:"contactName" validate:"max=255"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"max=32"`
	Address     string `json:"address" validate:"max=500"`
	Active      *bool  `json:"active"`
}

type SupplierHandler struct {
	service  supplier.Service
	validate *validator.Validate
}

func NewSupplierHandler(service supplier.Service) *SupplierHandler {
	return &SupplierHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *SupplierHandler) RegisterRoutes(router chi.Router) {
	router.Route("/suppliers", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

func (h *SupplierHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var requestPayload SupplierRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create supplier request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	sup := supplier.Supplier{
		Name:        requestPayload.Name,
		ContactName: requestPayload.ContactName,
		Email:       requestPayload.Email,
		Phone:       requestPayload.Phone,
		Address:     requestPayload.Address,
		Active:      true,
	}
	if requestPayload.Active != nil {
		sup.Active = *requestPayload.Active
	}

	created, err := h.service.Create(r.Context(), &sup)
	if err != nil {
		respondServiceError(w, err, "Failed to create supplier")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *SupplierHandler) handleList(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.List(r.Context(), queryBool(r, "activeOnly"))
	if err != nil {
		respondServiceError(w, err, "Failed to list suppliers")
		return
	}
	respondWithJSON(w, http.StatusOK, suppliers)
}

func (h *SupplierHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	sup, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get supplier")
		return
	}
	respondWithJSON(w, http.StatusOK, sup)
}

func (h *SupplierHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload SupplierRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update supplier request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	sup := supplier.Supplier{
		ID:          id,
		Name:        requestPayload.Name,
		ContactName: requestPayload.ContactName,
		Email:       requestPayload.Email,
		Phone:       requestPayload.Phone,
		Address:     requestPayload.Address,
		Active:      true,
	}
	if requestPayload.Active != nil {
		sup.Active = *requestPayload.Active
	}

	updated, err := h.service.Update(r.Context(), &sup)
	if err != nil {
		respondServiceError(w, err, "Failed to update supplier")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *SupplierHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete supplier")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
