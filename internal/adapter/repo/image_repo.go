package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photoflow/internal/domain"
)

// ImageRepositoryPG implements domain.ImageRepository.
type ImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewImageRepository creates a new image repository backed by PostgreSQL.
func NewImageRepository(pool *pgxpool.Pool) *ImageRepositoryPG {
	return &ImageRepositoryPG{pool: pool}
}

// CreateBatch inserts all records in one transaction so a batch either
// registers completely or not at all.
func (r *ImageRepositoryPG) CreateBatch(ctx context.Context, images []domain.Image) error {
	if len(images) == 0 {
		return domain.ErrEmptyBatch
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo: begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
INSERT INTO images (id, filename, storage_key, size_bytes, status)
VALUES ($1, $2, $3, $4, $5);
`
	for _, img := range images {
		if _, err := tx.Exec(ctx, query, img.ID, img.Filename, img.StorageKey, img.SizeBytes, img.Status); err != nil {
			return fmt.Errorf("repo: insert image %s: %w", img.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// GetByID fetches one image record.
func (r *ImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	query := `
SELECT id, filename, storage_key, COALESCE(enhanced_key, ''), size_bytes, status, result_json, created_at, updated_at
FROM images
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return img, nil
}

// ListByIDs fetches image records preserving the requested order; unknown
// ids are skipped.
func (r *ImageRepositoryPG) ListByIDs(ctx context.Context, ids []string) ([]domain.Image, error) {
	query := `
SELECT id, filename, storage_key, COALESCE(enhanced_key, ''), size_bytes, status, result_json, created_at, updated_at
FROM images
WHERE id = ANY($1);
`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repo: list images: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Image, len(ids))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		byID[img.ID] = *img
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Image, 0, len(byID))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}

// UpdateAnalysis records the analysis outcome for an image.
func (r *ImageRepositoryPG) UpdateAnalysis(ctx context.Context, id string, status domain.AnalysisStatus, resultJSON []byte) error {
	query := `
UPDATE images
SET status = $2,
    result_json = $3,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, status, nullableBytes(resultJSON))
	if err != nil {
		return fmt.Errorf("repo: update analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetEnhancedKey records where the enhanced rendition is stored.
func (r *ImageRepositoryPG) SetEnhancedKey(ctx context.Context, id, key string) error {
	query := `
UPDATE images
SET enhanced_key = $2,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("repo: set enhanced key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.Image, error) {
	var img domain.Image
	if err := row.Scan(
		&img.ID,
		&img.Filename,
		&img.StorageKey,
		&img.EnhancedKey,
		&img.SizeBytes,
		&img.Status,
		&img.ResultJSON,
		&img.CreatedAt,
		&img.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &img, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
