package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// SLAPolicyRepository persists per-sector SLA policies in sla_policies.
type SLAPolicyRepository interface {
	ListAll(ctx context.Context) ([]domain.SLAPolicy, error)
	GetBySector(ctx context.Context, sectorID string) (*domain.SLAPolicy, error)
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository builds the repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `id, setor_id, mode, p0_hours, p1_hours, p2_hours, p3_hours, allow_superadmin_override, created_at, updated_at`

func (r *slaPolicyRepository) ListAll(ctx context.Context) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+slaPolicyColumns+` FROM sla_policies`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanSLAPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) GetBySector(ctx context.Context, sectorID string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies WHERE setor_id=$1 ORDER BY updated_at DESC LIMIT 1`
	return scanSLAPolicy(r.pool.QueryRow(ctx, query, sectorID))
}

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (setor_id, mode, p0_hours, p1_hours, p2_hours, p3_hours, allow_superadmin_override)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.SectorID,
		policy.Mode.StorageValue(),
		policy.Hours.P0,
		policy.Hours.P1,
		policy.Hours.P2,
		policy.Hours.P3,
		policy.AllowSuperadminOverride,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET mode=$1, p0_hours=$2, p1_hours=$3, p2_hours=$4, p3_hours=$5,
            allow_superadmin_override=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		policy.Mode.StorageValue(),
		policy.Hours.P0,
		policy.Hours.P1,
		policy.Hours.P2,
		policy.Hours.P3,
		policy.AllowSuperadminOverride,
		policy.ID,
	).Scan(&policy.UpdatedAt)
	return err
}

func scanSLAPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var (
		policy domain.SLAPolicy
		mode   string
	)
	if err := row.Scan(
		&policy.ID,
		&policy.SectorID,
		&mode,
		&policy.Hours.P0,
		&policy.Hours.P1,
		&policy.Hours.P2,
		&policy.Hours.P3,
		&policy.AllowSuperadminOverride,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseStoredPolicyMode(mode)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", policy.ID, err)
	}
	policy.Mode = parsed
	return &policy, nil
}
