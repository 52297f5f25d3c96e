package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/appupdate"
	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
	"github.com/hamza-damra/sales-management-backend/internal/purchase"
	"github.com/hamza-damra/sales-management-backend/internal/report"
	"github.com/hamza-damra/sales-management-backend/internal/returns"
	"github.com/hamza-damra/sales-management-backend/internal/sale"
	"github.com/hamza-damra/sales-management-backend/internal/supplier"
)

type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// respondWithError sends a JSON error body with the given status code.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends any payload as JSON.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondValidationErrors turns validator failures into a 400 with one
// detail line per failed field.
func respondValidationErrors(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		log.Error().Err(err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		return
	}
	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: formatValidationErrors(validationErrors),
	})
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("Field '%s' is required", fe.Field()))
		case "min":
			details = append(details, fmt.Sprintf("Field '%s' must be at least %s characters long", fe.Field(), fe.Param()))
		case "max":
			details = append(details, fmt.Sprintf("Field '%s' must be at most %s characters long", fe.Field(), fe.Param()))
		case "email":
			details = append(details, fmt.Sprintf("Field '%s' must be a valid email address", fe.Field()))
		case "gte":
			details = append(details, fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param()))
		case "gt":
			details = append(details, fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param()))
		case "oneof":
			details = append(details, fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), fe.Param()))
		default:
			details = append(details, fmt.Sprintf("Field '%s' is invalid", fe.Field()))
		}
	}
	return details
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.FromString(chi.URLParam(r, name))
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// queryTime reads a timestamp query parameter, accepting RFC 3339 or a
// bare date. The zero time means the parameter was absent.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parameter %q must be RFC 3339 or YYYY-MM-DD", name)
	}
	return t, nil
}

// mapErrorToStatusCode translates service errors into HTTP status codes:
// validation and promotion-eligibility failures are 400, missing resources
// 404, and the conflict family (duplicates, referenced rows, stock
// shortfalls, illegal status transitions, promotion stacking and usage
// limits) is 409. Anything unrecognized is a 500.
func mapErrorToStatusCode(err error) int {
	var insufficientStock *catalog.InsufficientStockError
	var stockBelowZero *catalog.StockBelowZeroError
	var overReturn *returns.OverReturnError
	var saleTransition *sale.InvalidTransitionError
	var orderTransition *purchase.InvalidTransitionError
	var returnTransition *returns.InvalidTransitionError

	switch {
	case errors.Is(err, catalog.ErrValidation),
		errors.Is(err, customer.ErrValidation),
		errors.Is(err, supplier.ErrValidation),
		errors.Is(err, sale.ErrValidation),
		errors.Is(err, purchase.ErrValidation),
		errors.Is(err, returns.ErrValidation),
		errors.Is(err, promotion.ErrValidation),
		errors.Is(err, appupdate.ErrValidation),
		errors.Is(err, report.ErrValidation),
		errors.Is(err, promotion.ErrPromotionInactive),
		errors.Is(err, promotion.ErrNotApplicable),
		errors.Is(err, promotion.ErrCustomerNotEligible),
		errors.Is(err, promotion.ErrUnsupportedType),
		errors.Is(err, promotion.ErrMinPurchaseNotMet):
		return http.StatusBadRequest

	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, supplier.ErrSupplierNotFound),
		errors.Is(err, sale.ErrSaleNotFound),
		errors.Is(err, sale.ErrPromotionNotApplied),
		errors.Is(err, sale.ErrNoEligiblePromotion),
		errors.Is(err, purchase.ErrOrderNotFound),
		errors.Is(err, returns.ErrReturnNotFound),
		errors.Is(err, promotion.ErrPromotionNotFound),
		errors.Is(err, appupdate.ErrVersionNotFound):
		return http.StatusNotFound

	case errors.Is(err, catalog.ErrSKUExists),
		errors.Is(err, catalog.ErrProductReferenced),
		errors.Is(err, customer.ErrEmailExists),
		errors.Is(err, customer.ErrCustomerReferenced),
		errors.Is(err, supplier.ErrSupplierReferenced),
		errors.Is(err, sale.ErrSaleNotModifiable),
		errors.Is(err, sale.ErrPromotionAlreadyApplied),
		errors.Is(err, purchase.ErrOrderNotModifiable),
		errors.Is(err, purchase.ErrNotReceivable),
		errors.Is(err, returns.ErrSaleNotReturnable),
		errors.Is(err, promotion.ErrCouponExists),
		errors.Is(err, promotion.ErrPromotionReferenced),
		errors.Is(err, promotion.ErrUsageLimitReached),
		errors.Is(err, appupdate.ErrVersionExists),
		errors.As(err, &insufficientStock),
		errors.As(err, &stockBelowZero),
		errors.As(err, &overReturn),
		errors.As(err, &saleTransition),
		errors.As(err, &orderTransition),
		errors.As(err, &returnTransition):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// knownErrorMessages carries the client-facing wording for service errors
// that are safe to surface. Internal failures fall back to the handler's
// generic message.
var knownErrorMessages = []struct {
	target  error
	message string
}{
	{catalog.ErrProductNotFound, "Product not found"},
	{catalog.ErrSKUExists, "Product SKU already exists"},
	{catalog.ErrProductReferenced, "Product is referenced by sales, purchase orders or returns"},
	{customer.ErrCustomerNotFound, "Customer not found"},
	{customer.ErrEmailExists, "Email already exists"},
	{customer.ErrCustomerReferenced, "Customer is referenced by sales or returns"},
	{supplier.ErrSupplierNotFound, "Supplier not found"},
	{supplier.ErrSupplierReferenced, "Supplier is referenced by purchase orders"},
	{sale.ErrSaleNotFound, "Sale not found"},
	{sale.ErrSaleNotModifiable, "Sale is already completed or cancelled"},
	{sale.ErrPromotionAlreadyApplied, "Sale already has a promotion applied"},
	{sale.ErrPromotionNotApplied, "Promotion is not applied to this sale"},
	{sale.ErrNoEligiblePromotion, "No eligible promotion for this sale"},
	{purchase.ErrOrderNotFound, "Purchase order not found"},
	{purchase.ErrOrderNotModifiable, "Purchase order can no longer be modified"},
	{purchase.ErrNotReceivable, "Purchase order is not awaiting delivery"},
	{returns.ErrReturnNotFound, "Return not found"},
	{returns.ErrSaleNotReturnable, "Sale is not eligible for returns"},
	{promotion.ErrPromotionNotFound, "Promotion not found"},
	{promotion.ErrCouponExists, "Coupon code already exists"},
	{promotion.ErrPromotionReferenced, "Promotion is referenced by sales"},
	{promotion.ErrPromotionInactive, "Promotion is not active"},
	{promotion.ErrUsageLimitReached, "Promotion usage limit reached"},
	{promotion.ErrNotApplicable, "Promotion does not apply to any item in the order"},
	{promotion.ErrCustomerNotEligible, "Customer is not eligible for this promotion"},
	{promotion.ErrUnsupportedType, "Promotion type cannot be applied to an order total"},
	{promotion.ErrMinPurchaseNotMet, "Order subtotal is below the promotion minimum"},
	{appupdate.ErrVersionNotFound, "Application version not found"},
	{appupdate.ErrVersionExists, "Application version already exists"},
}

// clientMessage picks a safe client-facing message for a service error.
// Validation and typed errors carry their own wording; recognized
// sentinels map to fixed phrases; everything else gets the fallback so
// internals never leak.
func clientMessage(err error, fallback string) string {
	var insufficientStock *catalog.InsufficientStockError
	var stockBelowZero *catalog.StockBelowZeroError
	var overReturn *returns.OverReturnError
	var saleTransition *sale.InvalidTransitionError
	var orderTransition *purchase.InvalidTransitionError
	var returnTransition *returns.InvalidTransitionError

	switch {
	case errors.As(err, &insufficientStock):
		return insufficientStock.Error()
	case errors.As(err, &stockBelowZero):
		return stockBelowZero.Error()
	case errors.As(err, &overReturn):
		return overReturn.Error()
	case errors.As(err, &saleTransition):
		return saleTransition.Error()
	case errors.As(err, &orderTransition):
		return orderTransition.Error()
	case errors.As(err, &returnTransition):
		return returnTransition.Error()
	}

	if isValidationError(err) {
		return err.Error()
	}

	for _, known := range knownErrorMessages {
		if errors.Is(err, known.target) {
			return known.message
		}
	}
	return fallback
}

func isValidationError(err error) bool {
	return errors.Is(err, catalog.ErrValidation) ||
		errors.Is(err, customer.ErrValidation) ||
		errors.Is(err, supplier.ErrValidation) ||
		errors.Is(err, sale.ErrValidation) ||
		errors.Is(err, purchase.ErrValidation) ||
		errors.Is(err, returns.ErrValidation) ||
		errors.Is(err, promotion.ErrValidation) ||
		errors.Is(err, appupdate.ErrValidation) ||
		errors.Is(err, report.ErrValidation)
}

// respondServiceError logs the failure and writes the mapped status code
// with a client-safe message.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
	} else {
		log.Warn().Err(err).Msg(fallback)
	}
	respondWithError(w, code, clientMessage(err, fallback))
}
