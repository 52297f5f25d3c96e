package appupdate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	Publish(ctx context.Context, v *Version) (*Version, error)
	List(ctx context.Context) ([]Version, error)
	// Latest returns the active release with the highest semver.
	Latest(ctx context.Context) (*Version, error)
	// Check compares a client's version against the active releases.
	Check(ctx context.Context, clientVersion string) (*CheckResult, error)
	Withdraw(ctx context.Context, id uuid.UUID) (*Version, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Publish(ctx context.Context, v *Version) (*Version, error) {
	v.VersionName = strings.TrimSpace(v.VersionName)
	v.Checksum = strings.ToLower(strings.TrimSpace(v.Checksum))
	if err := validateVersion(v); err != nil {
		return nil, err
	}
	if v.ReleaseDate.IsZero() {
		v.ReleaseDate = time.Now().UTC()
	}
	v.Active = true

	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("service: publish version: %w", err)
	}

	log.Info().
		Stringer("version_id", id).
		Str("version", v.VersionName).
		Bool("mandatory", v.Mandatory).
		Msg("application version published")

	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]Version, error) {
	versions, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list versions: %w", err)
	}
	return versions, nil
}

func (s *service) Latest(ctx context.Context) (*Version, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: latest version: %w", err)
	}
	latest := maxVersion(active)
	if latest == nil {
		return nil, ErrVersionNotFound
	}
	return latest, nil
}

func (s *service) Check(ctx context.Context, clientVersion string) (*CheckResult, error) {
	clientVersion = strings.TrimSpace(clientVersion)
	if !IsValidVersion(clientVersion) {
		return nil, fmt.Errorf("%w: malformed client version %q", ErrValidation, clientVersion)
	}

	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: check for update: %w", err)
	}

	latest := maxVersion(active)
	if latest == nil || !latest.IsNewerThan(clientVersion) {
		return &CheckResult{}, nil
	}

	// The update is mandatory when any release the client has not reached
	// carries the flag, not just the newest one: skipping a mandatory
	// release does not make it optional.
	mandatory := false
	for i := range active {
		if active[i].Mandatory && active[i].IsNewerThan(clientVersion) {
			mandatory = true
			break
		}
	}

	return &CheckResult{
		UpdateAvailable: true,
		Mandatory:       mandatory,
		Latest:          latest,
	}, nil
}

func (s *service) Withdraw(ctx context.Context, id uuid.UUID) (*Version, error) {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return nil, fmt.Errorf("service: withdraw version: %w", err)
	}

	log.Info().Stringer("version_id", id).Msg("application version withdrawn")
	return s.repo.GetByID(ctx, id)
}

func maxVersion(versions []Version) *Version {
	var latest *Version
	for i := range versions {
		if latest == nil || versions[i].IsNewerThan(latest.VersionName) {
			latest = &versions[i]
		}
	}
	return latest
}

func validateVersion(v *Version) error {
	if v.VersionName == "" {
		return fmt.Errorf("%w: version name is required", ErrValidation)
	}
	if !IsValidVersion(v.VersionName) {
		return fmt.Errorf("%w: version name %q is not valid semver", ErrValidation, v.VersionName)
	}
	if v.DownloadURL == "" {
		return fmt.Errorf("%w: download url is required", ErrValidation)
	}
	if v.FileSize < 0 {
		return fmt.Errorf("%w: file size must not be negative", ErrValidation)
	}
	if v.Checksum != "" && !isSHA256Hex(v.Checksum) {
		return fmt.Errorf("%w: checksum must be 64 hex characters (sha256)", ErrValidation)
	}
	return nil
}
