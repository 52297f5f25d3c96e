package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/money"
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
)

type PromotionRequest struct {
	Name                 string          `json:"name" validate:"required,min=2,max=255"`
	Description          string          `json:"description"`
	CouponCode           string          `json:"couponCode" validate:"max=64"`
	Type                 string          `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING BUY_X_GET_Y"`
	DiscountValue        decimal.Decimal `json:"discountValue"`
	MinPurchaseAmount    decimal.Decimal `json:"minPurchaseAmount"`
	MaxDiscountAmount    decimal.Decimal `json:"maxDiscountAmount"`
	Eligibility          string          `json:"eligibility" validate:"omitempty,oneof=ALL VIP_ONLY NEW_CUSTOMERS RETURNING_CUSTOMERS PREMIUM_ONLY"`
	StartDate            time.Time       `json:"startDate" validate:"required"`
	EndDate              time.Time       `json:"endDate" validate:"required"`
	Active               *bool           `json:"active"`
	AutoApply            bool            `json:"autoApply"`
	UsageLimit           int             `json:"usageLimit" validate:"gte=0"`
	ApplicableCategories []string        `json:"applicableCategories"`
}

// ValidateCouponRequest checks a coupon against an order amount without
// touching any sale. CustomerID is optional; a walk-in order qualifies
// only for ALL-eligibility promotions.
type ValidateCouponRequest struct {
	CouponCode string          `json:"couponCode" validate:"required,min=1,max=64"`
	Amount     decimal.Decimal `json:"amount"`
	CustomerID *uuid.UUID      `json:"customerId"`
}

type ValidateCouponResponse struct {
	Valid          bool                 `json:"valid"`
	Reason         string               `json:"reason,omitempty"`
	Promotion      *promotion.Promotion `json:"promotion,omitempty"`
	DiscountAmount decimal.Decimal      `json:"discountAmount"`
	FreeShipping   bool                 `json:"freeShipping"`
	FinalAmount    decimal.Decimal      `json:"finalAmount"`
}

type PromotionHandler struct {
	service   promotion.Service
	customers customer.Service
	validate  *validator.Validate
}

func NewPromotionHandler(service promotion.Service, customers customer.Service) *PromotionHandler {
	return &PromotionHandler{
		service:   service,
		customers: customers,
		validate:  validator.New(),
	}
}

func (h *PromotionHandler) RegisterRoutes(router chi.Router) {
	router.Route("/promotions", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Post("/validate-coupon", h.handleValidateCoupon)
		r.Get("/coupon/{code}", h.handleGetByCoupon)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
		})
	})
}

func (h *PromotionHandler) promotionFromRequest(requestPayload *PromotionRequest) promotion.Promotion {
	promo := promotion.Promotion{
		Name:                 requestPayload.Name,
		Description:          requestPayload.Description,
		CouponCode:           requestPayload.CouponCode,
		Type:                 promotion.DiscountType(requestPayload.Type),
		DiscountValue:        requestPayload.DiscountValue,
		MinPurchaseAmount:    requestPayload.MinPurchaseAmount,
		MaxDiscountAmount:    requestPayload.MaxDiscountAmount,
		Eligibility:          promotion.Eligibility(requestPayload.Eligibility),
		StartDate:            requestPayload.StartDate,
		EndDate:              requestPayload.EndDate,
		Active:               true,
		AutoApply:            requestPayload.AutoApply,
		UsageLimit:           requestPayload.UsageLimit,
		ApplicableCategories: requestPayload.ApplicableCategories,
	}
	if requestPayload.Active != nil {
		promo.Active = *requestPayload.Active
	}
	return promo
}

func (h *PromotionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var requestPayload PromotionRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode create promotion request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	promo := h.promotionFromRequest(&requestPayload)
	created, err := h.service.Create(r.Context(), &promo)
	if err != nil {
		respondServiceError(w, err, "Failed to create promotion")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *PromotionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.List(r.Context(), queryBool(r, "includeInactive"))
	if err != nil {
		respondServiceError(w, err, "Failed to list promotions")
		return
	}
	respondWithJSON(w, http.StatusOK, promotions)
}

func (h *PromotionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	promo, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get promotion")
		return
	}
	respondWithJSON(w, http.StatusOK, promo)
}

func (h *PromotionHandler) handleGetByCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Coupon code parameter cannot be empty")
		return
	}

	promo, err := h.service.GetByCoupon(r.Context(), code)
	if err != nil {
		respondServiceError(w, err, "Failed to get promotion by coupon")
		return
	}
	respondWithJSON(w, http.StatusOK, promo)
}

func (h *PromotionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload PromotionRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode update promotion request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}

	promo := h.promotionFromRequest(&requestPayload)
	promo.ID = id

	updated, err := h.service.Update(r.Context(), &promo)
	if err != nil {
		respondServiceError(w, err, "Failed to update promotion")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *PromotionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete promotion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateCoupon looks the coupon up and runs the full evaluation
// against the given amount. Gate failures come back as valid=false with a
// reason, not as an error status; only a missing coupon is a 404.
func (h *PromotionHandler) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var requestPayload ValidateCouponRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode validate coupon request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondValidationErrors(w, err)
		return
	}
	if !requestPayload.Amount.IsPositive() {
		respondWithError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	promo, err := h.service.GetByCoupon(r.Context(), requestPayload.CouponCode)
	if err != nil {
		respondServiceError(w, err, "Failed to validate coupon")
		return
	}

	var cust *customer.Customer
	if requestPayload.CustomerID != nil {
		cust, err = h.customers.Get(r.Context(), *requestPayload.CustomerID)
		if err != nil {
			respondServiceError(w, err, "Failed to validate coupon")
			return
		}
	}

	lines := []promotion.Line{{Amount: requestPayload.Amount}}
	ev, err := promo.Evaluate(lines, requestPayload.Amount, cust, time.Now().UTC())
	if err != nil {
		respondWithJSON(w, http.StatusOK, ValidateCouponResponse{
			Valid:          false,
			Reason:         clientMessage(err, "Coupon is not valid"),
			DiscountAmount: decimal.Zero,
			FinalAmount:    money.Amount(requestPayload.Amount),
		})
		return
	}

	respondWithJSON(w, http.StatusOK, ValidateCouponResponse{
		Valid:          true,
		Promotion:      promo,
		DiscountAmount: ev.Discount,
		FreeShipping:   ev.FreeShipping,
		FinalAmount:    money.Amount(requestPayload.Amount.Sub(ev.Discount)),
	})
}
