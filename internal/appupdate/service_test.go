package appupdate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVersionRepo struct {
	mock.Mock
}

func (m *mockVersionRepo) Create(ctx context.Context, v *Version) (uuid.UUID, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockVersionRepo) GetByID(ctx context.Context, id uuid.UUID) (*Version, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Version), args.Error(1)
}

func (m *mockVersionRepo) GetByName(ctx context.Context, versionName string) (*Version, error) {
	args := m.Called(ctx, versionName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Version), args.Error(1)
}

func (m *mockVersionRepo) List(ctx context.Context) ([]Version, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Version), args.Error(1)
}

func (m *mockVersionRepo) ListActive(ctx context.Context) ([]Version, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Version), args.Error(1)
}

func (m *mockVersionRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func version(name string, mandatory bool) Version {
	return Version{
		ID:          uuid.Must(uuid.NewV4()),
		VersionName: name,
		ReleaseDate: time.Now().UTC(),
		Mandatory:   mandatory,
		Active:      true,
		DownloadURL: "https://updates.example.com/" + name + ".zip",
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 1, CompareVersions("2.1.0", "2.0.9"))
	assert.Equal(t, -1, CompareVersions("1.9.0", "1.10.0"))
	assert.Equal(t, 0, CompareVersions("v1.2.3", "1.2.3"))
}

func TestService_Publish_RejectsMalformedVersion(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	v := version("not-a-version", false)
	_, err := svc.Publish(context.Background(), &v)
	require.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "Create")
}

func TestService_Publish_RejectsBadChecksum(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	v := version("1.4.0", false)
	v.Checksum = "abc123"
	_, err := svc.Publish(context.Background(), &v)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "checksum")
}

func TestService_Publish_AcceptsSHA256Checksum(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	v := version("1.4.0", false)
	v.Checksum = strings.ToUpper(strings.Repeat("ab12", 16))

	id := uuid.Must(uuid.NewV4())
	repo.On("Create", mock.Anything, mock.MatchedBy(func(got *Version) bool {
		return got.Checksum == strings.ToLower(v.Checksum) && got.Active
	})).Return(id, nil).Once()
	repo.On("GetByID", mock.Anything, id).Return(&v, nil).Once()

	_, err := svc.Publish(context.Background(), &v)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Latest_PicksSemverMaxNotReleaseDate(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	// 1.10.0 beats 1.9.1 even though 1.9.1 was listed first (newest
	// release_date ordering from the repository).
	repo.On("ListActive", mock.Anything).
		Return([]Version{version("1.9.1", false), version("1.10.0", false), version("1.2.0", false)}, nil).
		Once()

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", latest.VersionName)
}

func TestService_Latest_NoActiveVersions(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	repo.On("ListActive", mock.Anything).Return([]Version{}, nil).Once()

	_, err := svc.Latest(context.Background())
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestService_Check_UpToDate(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	repo.On("ListActive", mock.Anything).
		Return([]Version{version("2.0.0", false)}, nil).
		Once()

	res, err := svc.Check(context.Background(), "2.0.0")
	require.NoError(t, err)
	assert.False(t, res.UpdateAvailable)
	assert.Nil(t, res.Latest)
}

func TestService_Check_UpdateAvailable(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	repo.On("ListActive", mock.Anything).
		Return([]Version{version("2.1.0", false), version("2.0.0", false)}, nil).
		Once()

	res, err := svc.Check(context.Background(), "v2.0.0")
	require.NoError(t, err)
	assert.True(t, res.UpdateAvailable)
	assert.False(t, res.Mandatory)
	require.NotNil(t, res.Latest)
	assert.Equal(t, "2.1.0", res.Latest.VersionName)
}

func TestService_Check_SkippedMandatoryReleaseStaysMandatory(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	// 2.0.5 was a mandatory hotfix; a 1.x client checking after 2.1.0
	// shipped must still be forced through it.
	repo.On("ListActive", mock.Anything).
		Return([]Version{version("2.1.0", false), version("2.0.5", true)}, nil).
		Once()

	res, err := svc.Check(context.Background(), "1.8.0")
	require.NoError(t, err)
	assert.True(t, res.UpdateAvailable)
	assert.True(t, res.Mandatory)
	assert.Equal(t, "2.1.0", res.Latest.VersionName)
}

func TestService_Check_MandatoryBehindClientIsIgnored(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	repo.On("ListActive", mock.Anything).
		Return([]Version{version("2.1.0", false), version("1.0.0", true)}, nil).
		Once()

	res, err := svc.Check(context.Background(), "2.0.0")
	require.NoError(t, err)
	assert.True(t, res.UpdateAvailable)
	assert.False(t, res.Mandatory)
}

func TestService_Check_MalformedClientVersion(t *testing.T) {
	repo := new(mockVersionRepo)
	svc := NewService(repo)

	_, err := svc.Check(context.Background(), "latest")
	require.ErrorIs(t, err, ErrValidation)
	repo.AssertNotCalled(t, "ListActive")
}
