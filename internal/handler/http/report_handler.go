package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hamza-damra/sales-management-backend/internal/report"
)

type ReportHandler struct {
	service report.Service
}

func NewReportHandler(service report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router chi.Router) {
	router.Route("/reports", func(r chi.Router) {
		r.Get("/sales-summary", h.handleSalesSummary)
		r.Get("/top-products", h.handleTopProducts)
		r.Get("/revenue-by-category", h.handleRevenueByCategory)
		r.Get("/low-stock", h.handleLowStock)
	})
}

// dateRange reads the optional from/to query parameters. Zero values are
// fine; the report service fills in the default period.
func dateRange(r *http.Request) (report.DateRange, error) {
	from, err := queryTime(r, "from")
	if err != nil {
		return report.DateRange{}, err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return report.DateRange{}, err
	}
	return report.DateRange{From: from, To: to}, nil
}

func (h *ReportHandler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.SalesSummary(r.Context(), dr)
	if err != nil {
		respondServiceError(w, err, "Failed to build sales summary")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *ReportHandler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.service.TopProducts(r.Context(), dr, queryInt(r, "limit", 10))
	if err != nil {
		respondServiceError(w, err, "Failed to build top products report")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ReportHandler) handleRevenueByCategory(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories, err := h.service.RevenueByCategory(r.Context(), dr)
	if err != nil {
		respondServiceError(w, err, "Failed to build revenue by category report")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *ReportHandler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.LowStock(r.Context())
	if err != nil {
		respondServiceError(w, err, "Failed to build low stock report")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
