package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// SectorRepository reads the sectors that own tickets and policies.
type SectorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Sector, error)
	ListActive(ctx context.Context) ([]domain.Sector, error)
}

type sectorRepository struct {
	pool *pgxpool.Pool
}

// NewSectorRepository builds the repository.
func NewSectorRepository(pool *pgxpool.Pool) SectorRepository {
	return &sectorRepository{pool: pool}
}

func (r *sectorRepository) GetByID(ctx context.Context, id string) (*domain.Sector, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM sectors WHERE id=$1`
	var sector domain.Sector
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&sector.ID,
		&sector.Name,
		&sector.IsActive,
		&sector.CreatedAt,
		&sector.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sector, nil
}

func (r *sectorRepository) ListActive(ctx context.Context) ([]domain.Sector, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM sectors WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Sector
	for rows.Next() {
		var sector domain.Sector
		if err := rows.Scan(&sector.ID, &sector.Name, &sector.IsActive, &sector.CreatedAt, &sector.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, sector)
	}
	return result, rows.Err()
}
