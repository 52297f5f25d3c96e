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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamza-damra/sales-management-backend/internal/appupdate"
	apphttp "github.com/hamza-damra/sales-management-backend/internal/handler/http"
)

type MockUpdateService struct {
	mock.Mock
}

func (m *MockUpdateService) Publish(ctx context.Context, v *appupdate.Version) (*appupdate.Version, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appupdate.Version), args.Error(1)
}

func (m *MockUpdateService) List(ctx context.Context) ([]appupdate.Version, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appupdate.Version), args.Error(1)
}

func (m *MockUpdateService) Latest(ctx context.Context) (*appupdate.Version, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appupdate.Version), args.Error(1)
}

func (m *MockUpdateService) Check(ctx context.Context, clientVersion string) (*appupdate.CheckResult, error) {
	args := m.Called(ctx, clientVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appupdate.CheckResult), args.Error(1)
}

func (m *MockUpdateService) Withdraw(ctx context.Context, id uuid.UUID) (*appupdate.Version, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appupdate.Version), args.Error(1)
}

func versionFixture(name string) *appupdate.Version {
	now := time.Now().UTC().Truncate(time.Second)
	return &appupdate.Version{
		ID:          uuid.Must(uuid.NewV4()),
		VersionName: name,
		ReleaseDate: now,
		Active:      true,
		DownloadURL: "https://releases.example.com/app-" + name + ".zip",
		FileName:    "app-" + name + ".zip",
		FileSize:    52428800,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUpdateHandler_handlePublish_Success(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	expected := versionFixture("2.4.0")

	mockService.On("Publish", mock.Anything, mock.MatchedBy(func(v *appupdate.Version) bool {
		return v.VersionName == "2.4.0" &&
			v.DownloadURL == "https://releases.example.com/app-2.4.0.zip" &&
			v.Mandatory
	})).Return(expected, nil).Once()

	body := `{
		"versionName": "2.4.0",
		"downloadUrl": "https://releases.example.com/app-2.4.0.zip",
		"fileName": "app-2.4.0.zip",
		"fileSize": 52428800,
		"mandatory": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/updates/versions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var actual appupdate.Version
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.Equal(t, expected.ID, actual.ID)
	assert.Equal(t, "2.4.0", actual.VersionName)

	mockService.AssertExpectations(t)
}

func TestUpdateHandler_handlePublish_MissingDownloadURL(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	body := `{"versionName": "2.4.0"}`
	req := httptest.NewRequest(http.MethodPost, "/updates/versions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var errorResponse apphttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse.Details, "Field 'DownloadURL' is required")

	mockService.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUpdateHandler_handlePublish_MalformedSemver(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	mockService.On("Publish", mock.Anything, mock.AnythingOfType("*appupdate.Version")).
		Return(nil, appupdate.ErrValidation).
		Once()

	body := `{"versionName": "latest", "downloadUrl": "https://releases.example.com/app.zip"}`
	req := httptest.NewRequest(http.MethodPost, "/updates/versions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	mockService.AssertExpectations(t)
}

func TestUpdateHandler_handleCheck_UpdateAvailable(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	latest := versionFixture("2.4.0")
	mockService.On("Check", mock.Anything, "2.1.0").
		Return(&appupdate.CheckResult{UpdateAvailable: true, Mandatory: true, Latest: latest}, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/updates/check/2.1.0", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual appupdate.CheckResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.True(t, actual.UpdateAvailable)
	assert.True(t, actual.Mandatory)
	require.NotNil(t, actual.Latest)
	assert.Equal(t, "2.4.0", actual.Latest.VersionName)

	mockService.AssertExpectations(t)
}

func TestUpdateHandler_handleCheck_UpToDate(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	mockService.On("Check", mock.Anything, "2.4.0").
		Return(&appupdate.CheckResult{}, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/updates/check/2.4.0", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual appupdate.CheckResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.False(t, actual.UpdateAvailable)
	assert.Nil(t, actual.Latest)

	mockService.AssertExpectations(t)
}

func TestUpdateHandler_handleLatest_NoneActive(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	mockService.On("Latest", mock.Anything).
		Return(nil, appupdate.ErrVersionNotFound).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/updates/latest", nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "Application version not found")

	mockService.AssertExpectations(t)
}

func TestUpdateHandler_handleWithdraw_Success(t *testing.T) {
	mockService := new(MockUpdateService)
	handler := apphttp.NewUpdateHandler(mockService)

	withdrawn := versionFixture("2.3.1")
	withdrawn.Active = false

	mockService.On("Withdraw", mock.Anything, withdrawn.ID).
		Return(withdrawn, nil).
		Once()

	req := httptest.NewRequest(http.MethodDelete, "/updates/versions/"+withdrawn.ID.String(), nil)
	rr := httptest.NewRecorder()
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual appupdate.Version
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.False(t, actual.Active)

	mockService.AssertExpectations(t)
}
