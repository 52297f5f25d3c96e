package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
)

type CreateProductRequest struct {
	SKU           string          `json:"sku" validate:"required,min=2,max=64"`
	Name          string          `json:"name" validate:"required,min=2,max=255"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	MinStockLevel int             `json:"minStockLevel" validate:"gte=0"`
	ReorderPoint  int             `json:"reorderPoint" validate:"gte=0"`
}

// UpdateProductRequest carries everything editable on a product. Stock
// quantity is absent on purpose: the quantity on hand changes only through
// the stock-adjustment endpoint, which writes the movement ledger.
type UpdateProductRequest struct {
	SKU           string          `json:"sku" validate:"required,min=2,max=64"`
	Name          string          `json:"name" validate:"required,min=2,max=255"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	MinStockLevel int             `json:"minStockLevel" validate:"gte=0"`
	ReorderPoint  int             `json:"reorderPoint" validate:"gte=0"`
	Active        bool            `json:"active"`
}

type AdjustStockRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note" validate:"max=500"`
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Route("/products", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/low-stock", h.handleLowStock)
		r.Get("/sku/{sku}", h.handleGetBySKU)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Post("/deactivate", h.handleDeactivate)
			r.Post("/adjust-stock", h.handleAdjustStock)
			r.Get("/movements", h.handleMovements)
		})
	})
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateProductRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create product request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	product := catalog.Product{
		SKU:           requestPayload.SKU,
		Name:          requestPayload.Name,
		Description:   requestPayload.Description,
		Category:      requestPayload.Category,
		UnitPrice:     requestPayload.UnitPrice,
		CostPrice:     requestPayload.CostPrice,
		StockQuantity: requestPayload.StockQuantity,
		MinStockLevel: requestPayload.MinStockLevel,
		ReorderPoint:  requestPayload.ReorderPoint,
		Active:        true,
	}

	created, err := h.service.Create(r.Context(), &product)
	if err != nil {
		respondServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ListFilter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: queryBool(r, "activeOnly"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to list low-stock products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleGetBySKU(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if sku == "" {
		respondWithError(w, http.StatusBadRequest, "SKU parameter cannot be empty")
		return
	}

	product, err := h.service.GetBySKU(r.Context(), sku)
	if err != nil {
		respondServiceError(w, err, "Failed to get product by SKU")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateProductRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update product request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	product := catalog.Product{
		ID:            id,
		SKU:           requestPayload.SKU,
		Name:          requestPayload.Name,
		Description:   requestPayload.Description,
		Category:      requestPayload.Category,
		UnitPrice:     requestPayload.UnitPrice,
		CostPrice:     requestPayload.CostPrice,
		MinStockLevel: requestPayload.MinStockLevel,
		ReorderPoint:  requestPayload.ReorderPoint,
		Active:        requestPayload.Active,
	}

	updated, err := h.service.Update(r.Context(), &product)
	if err != nil {
		respondServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	product, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to deactivate product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload AdjustStockRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode stock adjustment request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	product, err := h.service.AdjustStock(r.Context(), id, requestPayload.Delta, requestPayload.Note)
	if err != nil {
		respondServiceError(w, err, "Failed to adjust stock")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) handleMovements(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	movements, err := h.service.Movements(r.Context(), id, queryInt(r, "limit", 100))
	if err != nil {
		respondServiceError(w, err, "Failed to list stock movements")
		return
	}
	respondWithJSON(w, http.StatusOK, movements)
}
