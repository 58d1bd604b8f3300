package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// UploadRepository records dataset replacements.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.DatasetUpload) error
	ListRecent(ctx context.Context, limit int) ([]domain.DatasetUpload, error)
}

type uploadRepository struct {
	pool *pgxpool.Pool
}

// NewUploadRepository instantiates repository.
func NewUploadRepository(pool *pgxpool.Pool) UploadRepository {
	return &uploadRepository{pool: pool}
}

func (r *uploadRepository) Create(ctx context.Context, u *domain.DatasetUpload) error {
	const query = `
        INSERT INTO dataset_uploads (id, file_name, checksum, size_bytes, row_count, backup_path)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		u.ID,
		u.FileName,
		u.Checksum,
		u.SizeBytes,
		u.RowCount,
		u.BackupPath,
	).Scan(&u.CreatedAt)
}

func (r *uploadRepository) ListRecent(ctx context.Context, limit int) ([]domain.DatasetUpload, error) {
	const query = `
        SELECT id, file_name, checksum, size_bytes, row_count, backup_path, created_at
        FROM dataset_uploads
        ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []domain.DatasetUpload
	for rows.Next() {
		var u domain.DatasetUpload
		if err := rows.Scan(&u.ID, &u.FileName, &u.Checksum, &u.SizeBytes, &u.RowCount, &u.BackupPath, &u.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
