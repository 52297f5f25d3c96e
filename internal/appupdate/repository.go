package appupdate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrVersionNotFound = errors.New("application version not found")
	ErrVersionExists   = errors.New("application version already exists")

	ErrValidation = errors.New("application version validation failed")
)

type Repository interface {
	Create(ctx context.Context, v *Version) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Version, error)
	GetByName(ctx context.Context, versionName string) (*Version, error)
	List(ctx context.Context) ([]Version, error)
	ListActive(ctx context.Context) ([]Version, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const versionColumns = `id, version_name, release_date, mandatory, active, download_url,
	file_name, file_size, checksum, release_notes, created_at, updated_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(
		&v.ID, &v.VersionName, &v.ReleaseDate, &v.Mandatory, &v.Active, &v.DownloadURL,
		&v.FileName, &v.FileSize, &v.Checksum, &v.ReleaseNotes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepository) Create(ctx context.Context, v *Version) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("appupdate: generate id: %w", err)
	}

	now := time.Now().UTC()
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now

	query := `
		INSERT INTO app_versions (id, version_name, release_date, mandatory, active, download_url,
			file_name, file_size, checksum, release_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		v.ID, v.VersionName, v.ReleaseDate, v.Mandatory, v.Active, v.DownloadURL,
		v.FileName, v.FileSize, v.Checksum, v.ReleaseNotes, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrVersionExists
		}
		return uuid.Nil, fmt.Errorf("appupdate: insert: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM app_versions WHERE id = $1`

	v, err := scanVersion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("appupdate: select %s: %w", id, err)
	}
	return v, nil
}

func (r *postgresRepository) GetByName(ctx context.Context, versionName string) (*Version, error) {
	query := `SELECT ` + versionColumns + ` FROM app_versions WHERE version_name = $1`

	v, err := scanVersion(r.db.QueryRow(ctx, query, versionName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("appupdate: select by name %q: %w", versionName, err)
	}
	return v, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Version, error) {
	query := `SELECT ` + versionColumns + ` FROM app_versions ORDER BY release_date DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appupdate: list: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

func (r *postgresRepository) ListActive(ctx context.Context) ([]Version, error) {
	query := `SELECT ` + versionColumns + ` FROM app_versions WHERE active ORDER BY release_date DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("appupdate: list active: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE app_versions SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("appupdate: set active for %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrVersionNotFound
	}
	return nil
}

func collectVersions(rows pgx.Rows) ([]Version, error) {
	versions := make([]Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("appupdate: scan: %w", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appupdate: iterate: %w", err)
	}
	return versions, nil
}
