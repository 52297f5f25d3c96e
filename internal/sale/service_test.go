package sale

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
	"github.com/hamza-damra/sales-management-backend/internal/sequence"
)

type mockSaleRepo struct {
	mock.Mock
}

func (m *mockSaleRepo) Create(ctx context.Context, s *Sale) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Sale), args.Error(1)
}

func (m *mockSaleRepo) Complete(ctx context.Context, id uuid.UUID) (*Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) Cancel(ctx context.Context, id uuid.UUID) (*Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) UpdateDelivery(ctx context.Context, id uuid.UUID, status DeliveryStatus) (*Sale, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Sale), args.Error(1)
}

func (m *mockSaleRepo) ApplyPromotion(ctx context.Context, s *Sale, applied *AppliedPromotion) error {
	args := m.Called(ctx, s, applied)
	return args.Error(0)
}

func (m *mockSaleRepo) RemovePromotion(ctx context.Context, s *Sale, promotionID uuid.UUID) error {
	args := m.Called(ctx, s, promotionID)
	return args.Error(0)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *catalog.Product) (uuid.UUID, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepo) GetBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *mockProductRepo) ListLowStock(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepo) AdjustStock(ctx context.Context, productID uuid.UUID, delta int, reason catalog.MovementReason, referenceID *uuid.UUID, note string) (*catalog.Product, error) {
	args := m.Called(ctx, productID, delta, reason, referenceID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepo) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]catalog.StockMovement, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.StockMovement), args.Error(1)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) Create(ctx context.Context, c *customer.Customer) (uuid.UUID, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *mockCustomerRepo) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *mockCustomerRepo) List(ctx context.Context, filter customer.ListFilter) ([]customer.Customer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]customer.Customer), args.Error(1)
}

func (m *mockCustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCustomerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockPromotionRepo struct {
	mock.Mock
}

func (m *mockPromotionRepo) Create(ctx context.Context, p *promotion.Promotion) (uuid.UUID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockPromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*promotion.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Promotion), args.Error(1)
}

func (m *mockPromotionRepo) GetByCoupon(ctx context.Context, code string) (*promotion.Promotion, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Promotion), args.Error(1)
}

func (m *mockPromotionRepo) List(ctx context.Context, includeInactive bool) ([]promotion.Promotion, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.Promotion), args.Error(1)
}

func (m *mockPromotionRepo) ListAutoApply(ctx context.Context, at time.Time) ([]promotion.Promotion, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]promotion.Promotion), args.Error(1)
}

func (m *mockPromotionRepo) Update(ctx context.Context, p *promotion.Promotion) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPromotionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type serviceMocks struct {
	repo       *mockSaleRepo
	products   *mockProductRepo
	customers  *mockCustomerRepo
	promotions *mockPromotionRepo
}

func newTestService() (Service, *serviceMocks) {
	m := &serviceMocks{
		repo:       new(mockSaleRepo),
		products:   new(mockProductRepo),
		customers:  new(mockCustomerRepo),
		promotions: new(mockPromotionRepo),
	}
	svc := NewService(m.repo, m.products, m.customers, m.promotions, &sequence.Counter{})
	return svc, m
}

func testProduct(name, category, unitPrice, costPrice string, stock int) *catalog.Product {
	return &catalog.Product{
		ID:            uuid.Must(uuid.NewV4()),
		Name:          name,
		Category:      category,
		UnitPrice:     dec(unitPrice),
		CostPrice:     dec(costPrice),
		StockQuantity: stock,
		Active:        true,
	}
}

var saleNumberPattern = regexp.MustCompile(`^SALE-\d+-\d+-[A-Z0-9]{4}$`)

func TestServiceCreateSale(t *testing.T) {
	svc, m := newTestService()

	laptop := testProduct("Laptop", "Electronics", "100.00", "40.00", 10)
	mouse := testProduct("Mouse", "Electronics", "50.00", "20.00", 10)

	m.products.On("GetByID", mock.Anything, laptop.ID).Return(laptop, nil)
	m.products.On("GetByID", mock.Anything, mouse.ID).Return(mouse, nil)
	m.promotions.On("ListAutoApply", mock.Anything, mock.Anything).Return([]promotion.Promotion{}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{
			{ProductID: laptop.ID, Quantity: 2},
			{ProductID: mouse.ID, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PaymentPending, created.PaymentStatus)
	assert.Equal(t, MethodCash, created.PaymentMethod, "payment method defaults to cash")
	assert.Regexp(t, saleNumberPattern, created.Number)

	eq(t, "250.00", created.Subtotal)
	eq(t, "250.00", created.TotalAmount)
	eq(t, "100.00", created.CostOfGoodsSold)
	eq(t, "60", created.ProfitMargin)

	require.Len(t, created.Items, 2)
	assert.Equal(t, "Laptop", created.Items[0].ProductName)
	assert.Equal(t, "Electronics", created.Items[0].Category)
	eq(t, "40.00", created.Items[0].CostPrice)

	m.repo.AssertExpectations(t)
}

func TestServiceCreateSaleValidation(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name    string
		input   CreateInput
		wantMsg string
	}{
		{
			name:    "no items",
			input:   CreateInput{},
			wantMsg: "at least one item",
		},
		{
			name: "zero quantity",
			input: CreateInput{
				Items: []ItemInput{{ProductID: productID, Quantity: 0}},
			},
			wantMsg: "quantity must be at least 1",
		},
		{
			name: "missing product id",
			input: CreateInput{
				Items: []ItemInput{{Quantity: 1}},
			},
			wantMsg: "product id is required",
		},
		{
			name: "negative shipping",
			input: CreateInput{
				Items:        []ItemInput{{ProductID: productID, Quantity: 1}},
				ShippingCost: dec("-1"),
			},
			wantMsg: "shipping cost",
		},
		{
			name: "discount percent above 100",
			input: CreateInput{
				Items: []ItemInput{{ProductID: productID, Quantity: 1, DiscountPercent: dec("120")}},
			},
			wantMsg: "between 0 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()

			_, err := svc.Create(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
			m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestServiceCreateSaleInactiveProduct(t *testing.T) {
	svc, m := newTestService()

	product := testProduct("Laptop", "Electronics", "100.00", "40.00", 10)
	product.Active = false
	m.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "not active")
}

func TestServiceCreateSaleInsufficientStock(t *testing.T) {
	svc, m := newTestService()

	product := testProduct("Laptop", "Electronics", "100.00", "40.00", 1)
	m.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	m.promotions.On("ListAutoApply", mock.Anything, mock.Anything).Return([]promotion.Promotion{}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(&catalog.InsufficientStockError{
		ProductID: product.ID,
		Requested: 5,
		Available: 1,
	})

	_, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{{ProductID: product.ID, Quantity: 5}},
	})

	require.Error(t, err)
	var insufficient *catalog.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)
}

func TestServiceCreateSaleAutoAppliesBestPromotion(t *testing.T) {
	svc, m := newTestService()

	product := testProduct("Laptop", "Electronics", "250.00", "100.00", 10)
	m.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	now := time.Now()
	tenPercent := promotion.Promotion{
		ID: uuid.Must(uuid.NewV4()), Name: "Ten percent", Type: promotion.DiscountPercentage,
		DiscountValue: dec("10"), Eligibility: promotion.EligibilityAll,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
		Active: true, AutoApply: true,
	}
	twentyFlat := promotion.Promotion{
		ID: uuid.Must(uuid.NewV4()), Name: "Twenty off", Type: promotion.DiscountFixed,
		DiscountValue: dec("20.00"), Eligibility: promotion.EligibilityAll,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
		Active: true, AutoApply: true,
	}
	m.promotions.On("ListAutoApply", mock.Anything, mock.Anything).
		Return([]promotion.Promotion{tenPercent, twentyFlat}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Items: []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})

	require.NoError(t, err)
	require.Len(t, created.Promotions, 1)
	applied := created.Promotions[0]
	assert.Equal(t, tenPercent.ID, applied.PromotionID, "10%% of 250 beats a flat 20")
	assert.True(t, applied.AutoApplied)
	eq(t, "25.00", applied.DiscountAmount)
	eq(t, "250.00", applied.OriginalAmount)
	eq(t, "225.00", applied.FinalAmount)
	eq(t, "10", applied.DiscountPercent)
	eq(t, "225.00", created.TotalAmount)
}

func TestServiceCreateSaleWithCoupon(t *testing.T) {
	svc, m := newTestService()

	product := testProduct("Laptop", "Electronics", "200.00", "80.00", 10)
	m.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	now := time.Now()
	promo := &promotion.Promotion{
		ID: uuid.Must(uuid.NewV4()), Name: "Flat 25", CouponCode: "SAVE25",
		Type: promotion.DiscountFixed, DiscountValue: dec("25.00"),
		Eligibility: promotion.EligibilityAll,
		StartDate:   now.Add(-time.Hour), EndDate: now.Add(time.Hour),
		Active: true,
	}
	m.promotions.On("GetByCoupon", mock.Anything, "SAVE25").Return(promo, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Items:      []ItemInput{{ProductID: product.ID, Quantity: 1}},
		CouponCode: "SAVE25",
	})

	require.NoError(t, err)
	require.Len(t, created.Promotions, 1)
	applied := created.Promotions[0]
	assert.False(t, applied.AutoApplied)
	assert.Equal(t, "SAVE25", applied.CouponCode)
	eq(t, "25.00", applied.DiscountAmount)
	eq(t, "12.5", applied.DiscountPercent) // derived for display: 25 / 200 * 100
	eq(t, "175.00", created.TotalAmount)
	m.promotions.AssertNotCalled(t, "ListAutoApply", mock.Anything, mock.Anything)
}

func TestServiceApplyCouponGuards(t *testing.T) {
	t.Run("terminal sale", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).
			Return(&Sale{ID: saleID, Status: StatusCompleted}, nil)

		_, err := svc.ApplyCoupon(context.Background(), saleID, "SAVE25")
		assert.ErrorIs(t, err, ErrSaleNotModifiable)
	})

	t.Run("promotion already applied", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).Return(&Sale{
			ID:         saleID,
			Status:     StatusPending,
			Promotions: []AppliedPromotion{{PromotionID: uuid.Must(uuid.NewV4())}},
		}, nil)

		_, err := svc.ApplyCoupon(context.Background(), saleID, "SAVE25")
		assert.ErrorIs(t, err, ErrPromotionAlreadyApplied)
	})
}

func TestServiceRemovePromotionRecomputesTotals(t *testing.T) {
	svc, m := newTestService()

	saleID := uuid.Must(uuid.NewV4())
	promoID := uuid.Must(uuid.NewV4())
	withPromo := &Sale{
		ID:     saleID,
		Status: StatusPending,
		Items:  []SaleItem{{Quantity: 1, UnitPrice: dec("200.00")}},
		Promotions: []AppliedPromotion{{
			PromotionID:    promoID,
			DiscountAmount: dec("25.00"),
		}},
	}
	withPromo.CalculateTotals()
	eq(t, "175.00", withPromo.TotalAmount)

	m.repo.On("GetByID", mock.Anything, saleID).Return(withPromo, nil).Once()
	m.repo.On("RemovePromotion", mock.Anything, mock.MatchedBy(func(s *Sale) bool {
		return s.TotalAmount.Equal(dec("200.00")) && s.PromotionDiscountAmount.IsZero()
	}), promoID).Return(nil)
	m.repo.On("GetByID", mock.Anything, saleID).
		Return(&Sale{ID: saleID, Status: StatusPending, TotalAmount: dec("200.00")}, nil)

	updated, err := svc.RemovePromotion(context.Background(), saleID, promoID)

	require.NoError(t, err)
	eq(t, "200.00", updated.TotalAmount)
	m.repo.AssertExpectations(t)
}

func TestServiceRemovePromotionNotApplied(t *testing.T) {
	svc, m := newTestService()

	saleID := uuid.Must(uuid.NewV4())
	m.repo.On("GetByID", mock.Anything, saleID).Return(&Sale{
		ID:     saleID,
		Status: StatusPending,
		Items:  []SaleItem{{Quantity: 1, UnitPrice: dec("50.00")}},
	}, nil)

	_, err := svc.RemovePromotion(context.Background(), saleID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrPromotionNotApplied)
}

func TestServiceApplyAuto(t *testing.T) {
	svc, m := newTestService()

	saleID := uuid.Must(uuid.NewV4())
	pending := &Sale{
		ID:     saleID,
		Status: StatusPending,
		Items:  []SaleItem{{Quantity: 1, UnitPrice: dec("250.00"), Category: "Electronics"}},
	}
	pending.CalculateTotals()
	m.repo.On("GetByID", mock.Anything, saleID).Return(pending, nil)

	now := time.Now()
	tenPercent := promotion.Promotion{
		ID: uuid.Must(uuid.NewV4()), Name: "Ten percent", Type: promotion.DiscountPercentage,
		DiscountValue: dec("10"), Eligibility: promotion.EligibilityAll,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour),
		Active: true, AutoApply: true,
	}
	m.promotions.On("ListAutoApply", mock.Anything, mock.Anything).
		Return([]promotion.Promotion{tenPercent}, nil)
	m.repo.On("ApplyPromotion", mock.Anything, mock.MatchedBy(func(s *Sale) bool {
		return s.TotalAmount.Equal(dec("225.00"))
	}), mock.MatchedBy(func(ap *AppliedPromotion) bool {
		return ap.AutoApplied && ap.PromotionID == tenPercent.ID
	})).Return(nil)

	updated, err := svc.ApplyAuto(context.Background(), saleID)

	require.NoError(t, err)
	require.Len(t, updated.Promotions, 1)
	eq(t, "25.00", updated.Promotions[0].DiscountAmount)
	m.repo.AssertExpectations(t)
}

func TestServiceApplyAutoNoneEligible(t *testing.T) {
	svc, m := newTestService()

	saleID := uuid.Must(uuid.NewV4())
	pending := &Sale{
		ID:     saleID,
		Status: StatusPending,
		Items:  []SaleItem{{Quantity: 1, UnitPrice: dec("50.00")}},
	}
	pending.CalculateTotals()
	m.repo.On("GetByID", mock.Anything, saleID).Return(pending, nil)
	m.promotions.On("ListAutoApply", mock.Anything, mock.Anything).
		Return([]promotion.Promotion{}, nil)

	_, err := svc.ApplyAuto(context.Background(), saleID)

	assert.ErrorIs(t, err, ErrNoEligiblePromotion)
	m.repo.AssertNotCalled(t, "ApplyPromotion", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceApplyAutoGuards(t *testing.T) {
	t.Run("terminal sale", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).
			Return(&Sale{ID: saleID, Status: StatusCancelled}, nil)

		_, err := svc.ApplyAuto(context.Background(), saleID)
		assert.ErrorIs(t, err, ErrSaleNotModifiable)
	})

	t.Run("promotion already applied", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).Return(&Sale{
			ID:         saleID,
			Status:     StatusPending,
			Promotions: []AppliedPromotion{{PromotionID: uuid.Must(uuid.NewV4())}},
		}, nil)

		_, err := svc.ApplyAuto(context.Background(), saleID)
		assert.ErrorIs(t, err, ErrPromotionAlreadyApplied)
	})
}

func TestServiceUpdateDelivery(t *testing.T) {
	svc, m := newTestService()

	saleID := uuid.Must(uuid.NewV4())
	m.repo.On("GetByID", mock.Anything, saleID).
		Return(&Sale{ID: saleID, Status: StatusCompleted, DeliveryStatus: DeliveryNotShipped}, nil)
	m.repo.On("UpdateDelivery", mock.Anything, saleID, DeliveryShipped).
		Return(&Sale{ID: saleID, Status: StatusCompleted, DeliveryStatus: DeliveryShipped}, nil)

	updated, err := svc.UpdateDelivery(context.Background(), saleID, DeliveryShipped)

	require.NoError(t, err)
	assert.Equal(t, DeliveryShipped, updated.DeliveryStatus)
	m.repo.AssertExpectations(t)
}

func TestServiceUpdateDeliveryGuards(t *testing.T) {
	t.Run("backward move rejected", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).
			Return(&Sale{ID: saleID, Status: StatusPending, DeliveryStatus: DeliveryDelivered}, nil)

		_, err := svc.UpdateDelivery(context.Background(), saleID, DeliveryShipped)

		assert.ErrorIs(t, err, ErrValidation)
		m.repo.AssertNotCalled(t, "UpdateDelivery", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled sale rejected", func(t *testing.T) {
		svc, m := newTestService()

		saleID := uuid.Must(uuid.NewV4())
		m.repo.On("GetByID", mock.Anything, saleID).
			Return(&Sale{ID: saleID, Status: StatusCancelled, DeliveryStatus: DeliveryNotShipped}, nil)

		_, err := svc.UpdateDelivery(context.Background(), saleID, DeliveryShipped)
		assert.ErrorIs(t, err, ErrSaleNotModifiable)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		svc, m := newTestService()

		_, err := svc.UpdateDelivery(context.Background(), uuid.Must(uuid.NewV4()), DeliveryStatus("LOST"))

		assert.ErrorIs(t, err, ErrValidation)
		m.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
