package supplier

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, supplier *Supplier) (uuid.UUID, error) {
	args := m.Called(ctx, supplier)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Supplier), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Supplier), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, supplier *Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestServiceCreateTrimsName(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	id := uuid.Must(uuid.NewV4())
	repo.On("Create", mock.Anything, mock.MatchedBy(func(s *Supplier) bool {
		return s.Name == "Acme Wholesale"
	})).Return(id, nil)
	repo.On("GetByID", mock.Anything, id).Return(&Supplier{ID: id, Name: "Acme Wholesale"}, nil)

	created, err := svc.Create(context.Background(), &Supplier{Name: "  Acme Wholesale  "})

	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	repo.AssertExpectations(t)
}

func TestServiceCreateRequiresName(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), &Supplier{Name: "   "})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestServiceGetReturnsStoredSupplier(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	id := uuid.Must(uuid.NewV4())
	stored := Supplier{
		ID:          id,
		Name:        "Acme Wholesale",
		ContactName: "Sam Porter",
		Email:       "orders@acme.example",
		Phone:       "555-0102",
		Active:      true,
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now(),
	}

	repo.On("GetByID", mock.Anything, id).Return(&stored, nil)

	found, err := svc.Get(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, found)
	diff := cmp.Diff(stored, *found)
	require.Empty(t, diff)
	repo.AssertExpectations(t)
}

func TestServiceListForwardsActiveOnly(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	repo.On("List", mock.Anything, true).Return([]Supplier{{Name: "Acme Wholesale"}}, nil)

	suppliers, err := svc.List(context.Background(), true)

	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	repo.AssertExpectations(t)
}

func TestServiceUpdateRequiresID(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), &Supplier{Name: "Acme Wholesale"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestServiceDeleteReferenced(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo)

	id := uuid.Must(uuid.NewV4())
	repo.On("Delete", mock.Anything, id).Return(ErrSupplierReferenced)

	err := svc.Delete(context.Background(), id)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSupplierReferenced)
}
