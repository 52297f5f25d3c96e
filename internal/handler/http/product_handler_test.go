package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	apphttp "github.com/hamza-damra/sales-management-backend/internal/handler/http"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) GetBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductService) LowStock(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) Deactivate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) AdjustStock(ctx context.Context, productID uuid.UUID, delta int, note string) (*catalog.Product, error) {
	args := m.Called(ctx, productID, delta, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]catalog.StockMovement, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.StockMovement), args.Error(1)
}

func productFixture(id uuid.UUID) *catalog.Product {
	now := time.Now().UTC().Truncate(time.Second)
	return &catalog.Product{
		ID:            id,
		SKU:           "WDG-001",
		Name:          "Widget",
		Category:      "Widgets",
		UnitPrice:     decimal.RequireFromString("19.99"),
		CostPrice:     decimal.RequireFromString("12.50"),
		StockQuantity: 40,
		MinStockLevel: 5,
		ReorderPoint:  10,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestProductHandler_handleCreate_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	requestDTO := apphttp.CreateProductRequest{
		SKU:           "WDG-001",
		Name:          "Widget",
		Category:      "Widgets",
		UnitPrice:     decimal.RequireFromString("19.99"),
		CostPrice:     decimal.RequireFromString("12.50"),
		StockQuantity: 40,
		MinStockLevel: 5,
		ReorderPoint:  10,
	}

	expected := productFixture(uuid.Must(uuid.NewV4()))

	mockService.On("Create", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool {
		return p.SKU == requestDTO.SKU &&
			p.Name == requestDTO.Name &&
			p.StockQuantity == requestDTO.StockQuantity &&
			p.Active
	})).Return(expected, nil).Once()

	jsonBody, err := json.Marshal(requestDTO)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var actual catalog.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, expected.SKU, actual.SKU)
	assert.True(t, actual.UnitPrice.Equal(expected.UnitPrice), "UnitPrice mismatch")

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleCreate_SKUExists(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	mockService.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Product")).
		Return(nil, catalog.ErrSKUExists).
		Once()

	body := `{"sku": "WDG-001", "name": "Widget", "unitPrice": "19.99"}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "Product SKU already exists")

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleCreate_ValidationError(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	body := `{"sku": "W", "stockQuantity": -1}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var errorResponse apphttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Equal(t, "Validation failed", errorResponse.Error)
	assert.Contains(t, errorResponse.Details, "Field 'SKU' must be at least 2 characters long")
	assert.Contains(t, errorResponse.Details, "Field 'Name' is required")
	assert.Contains(t, errorResponse.Details, "Field 'StockQuantity' must be at least 0")

	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProductHandler_handleList_ForwardsFilter(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	mockService.On("List", mock.Anything, catalog.ListFilter{
		Category:   "Widgets",
		ActiveOnly: true,
		Limit:      20,
		Offset:     40,
	}).Return([]catalog.Product{*productFixture(uuid.Must(uuid.NewV4()))}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/products?category=Widgets&activeOnly=true&limit=20&offset=40", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual []catalog.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.Len(t, actual, 1)

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleLowStock_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	low := productFixture(uuid.Must(uuid.NewV4()))
	low.StockQuantity = 2

	mockService.On("LowStock", mock.Anything).
		Return([]catalog.Product{*low}, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/products/low-stock", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual []catalog.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	require.Len(t, actual, 1)
	assert.Equal(t, low.ID, actual[0].ID)

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleGetBySKU_NotFound(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	mockService.On("GetBySKU", mock.Anything, "NOPE-404").
		Return(nil, catalog.ErrProductNotFound).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/products/sku/NOPE-404", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "Product not found")

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleAdjustStock_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	productID := uuid.Must(uuid.NewV4())
	adjusted := productFixture(productID)
	adjusted.StockQuantity = 37

	mockService.On("AdjustStock", mock.Anything, productID, -3, "damaged in storage").
		Return(adjusted, nil).
		Once()

	body := `{"delta": -3, "note": "damaged in storage"}`
	req := httptest.NewRequest(http.MethodPost, "/products/"+productID.String()+"/adjust-stock",
		bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual catalog.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.Equal(t, 37, actual.StockQuantity)

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleAdjustStock_BelowZero(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	productID := uuid.Must(uuid.NewV4())
	mockService.On("AdjustStock", mock.Anything, productID, -50, "").
		Return(nil, &catalog.StockBelowZeroError{ProductID: productID, Current: 40, Delta: -50}).
		Once()

	body := `{"delta": -50}`
	req := httptest.NewRequest(http.MethodPost, "/products/"+productID.String()+"/adjust-stock",
		bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "would go below zero")

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleMovements_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	productID := uuid.Must(uuid.NewV4())
	movements := []catalog.StockMovement{
		{
			ID:        uuid.Must(uuid.NewV4()),
			ProductID: productID,
			Delta:     -3,
			Reason:    catalog.MovementManualAdjustment,
			Note:      "damaged in storage",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
	}

	mockService.On("Movements", mock.Anything, productID, 10).
		Return(movements, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/products/"+productID.String()+"/movements?limit=10", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual []catalog.StockMovement
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	require.Len(t, actual, 1)
	assert.Equal(t, -3, actual[0].Delta)

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleDeactivate_Success(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	productID := uuid.Must(uuid.NewV4())
	deactivated := productFixture(productID)
	deactivated.Active = false

	mockService.On("Deactivate", mock.Anything, productID).
		Return(deactivated, nil).
		Once()

	req := httptest.NewRequest(http.MethodPost, "/products/"+productID.String()+"/deactivate", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual catalog.Product
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.False(t, actual.Active)

	mockService.AssertExpectations(t)
}

func TestProductHandler_handleDelete_Referenced(t *testing.T) {
	mockService := new(MockProductService)
	handler := apphttp.NewProductHandler(mockService)

	productID := uuid.Must(uuid.NewV4())
	mockService.On("Delete", mock.Anything, productID).
		Return(catalog.ErrProductReferenced).
		Once()

	req := httptest.NewRequest(http.MethodDelete, "/products/"+productID.String(), nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "referenced")

	mockService.AssertExpectations(t)
}
