// Package http carries the REST surface: one handler per resource, a shared
// router, and the response helpers they all use. Handlers validate payload
// shape and translate service errors to status codes; business rules stay in
// the services.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

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

// Services collects every service the router exposes.
type Services struct {
	Products   catalog.Service
	Customers  customer.Service
	Suppliers  supplier.Service
	Sales      sale.Service
	Purchases  purchase.Service
	Returns    returns.Service
	Promotions promotion.Service
	Reports    report.Service
	Updates    appupdate.Service
}

// NewRouter builds the full route tree under /api/v1 plus the health probe.
func NewRouter(s Services) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		NewProductHandler(s.Products).RegisterRoutes(r)
		NewCustomerHandler(s.Customers).RegisterRoutes(r)
		NewSupplierHandler(s.Suppliers).RegisterRoutes(r)
		NewSaleHandler(s.Sales).RegisterRoutes(r)
		NewPurchaseOrderHandler(s.Purchases).RegisterRoutes(r)
		NewReturnHandler(s.Returns).RegisterRoutes(r)
		NewPromotionHandler(s.Promotions, s.Customers).RegisterRoutes(r)
		NewReportHandler(s.Reports).RegisterRoutes(r)
		NewUpdateHandler(s.Updates).RegisterRoutes(r)
	})

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
