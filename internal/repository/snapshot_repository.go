package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// SnapshotRepository persists analysis snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.AnalysisSnapshot) error
	GetLatestByChecksum(ctx context.Context, checksum string) (*domain.AnalysisSnapshot, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AnalysisSnapshot, error)
}

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository instantiates repository.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Create(ctx context.Context, s *domain.AnalysisSnapshot) error {
	const query = `
        INSERT INTO analysis_snapshots (id, source_name, source_checksum, encoding, total_tickets,
            resolution_rate, sla_compliance, csat_percentage, backlog, findings)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		s.ID,
		s.SourceName,
		s.SourceChecksum,
		s.Encoding,
		s.TotalTickets,
		s.ResolutionRate,
		s.SLACompliance,
		s.CSATPercentage,
		s.Backlog,
		s.Findings,
	).Scan(&s.CreatedAt)
}

func (r *snapshotRepository) GetLatestByChecksum(ctx context.Context, checksum string) (*domain.AnalysisSnapshot, error) {
	const query = `
        SELECT id, source_name, source_checksum, encoding, total_tickets, resolution_rate::float8,
               sla_compliance::float8, csat_percentage::float8, backlog, findings, created_at
        FROM analysis_snapshots WHERE source_checksum=$1
        ORDER BY created_at DESC LIMIT 1`
	var s domain.AnalysisSnapshot
	if err := r.pool.QueryRow(ctx, query, checksum).Scan(snapshotFields(&s)...); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *snapshotRepository) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisSnapshot, error) {
	const query = `
        SELECT id, source_name, source_checksum, encoding, total_tickets, resolution_rate::float8,
               sla_compliance::float8, csat_percentage::float8, backlog, findings, created_at
        FROM analysis_snapshots
        ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []domain.AnalysisSnapshot
	for rows.Next() {
		var s domain.AnalysisSnapshot
		if err := rows.Scan(snapshotFields(&s)...); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func snapshotFields(s *domain.AnalysisSnapshot) []any {
	return []any{
		&s.ID,
		&s.SourceName,
		&s.SourceChecksum,
		&s.Encoding,
		&s.TotalTickets,
		&s.ResolutionRate,
		&s.SLACompliance,
		&s.CSATPercentage,
		&s.Backlog,
		&s.Findings,
		&s.CreatedAt,
	}
}

// clampLimit keeps list queries within [1, 100], defaulting to 20.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	default:
		return limit
	}
}
