package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// PolicyAuditRepository records policy changes.
type PolicyAuditRepository interface {
	Create(ctx context.Context, audit *domain.PolicyAudit) error
	ListBySector(ctx context.Context, sectorID string, limit int) ([]domain.PolicyAudit, error)
}

type policyAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyAuditRepository builds repository.
func NewPolicyAuditRepository(pool *pgxpool.Pool) PolicyAuditRepository {
	return &policyAuditRepository{pool: pool}
}

func (r *policyAuditRepository) Create(ctx context.Context, audit *domain.PolicyAudit) error {
	const query = `
        INSERT INTO sla_policy_audit (policy_id, setor_id, changed_by_id, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		audit.PolicyID,
		audit.SectorID,
		audit.ChangedByID,
		audit.OldValue,
		audit.NewValue,
	).Scan(&audit.ID, &audit.CreatedAt)
}

func (r *policyAuditRepository) ListBySector(ctx context.Context, sectorID string, limit int) ([]domain.PolicyAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, policy_id, setor_id, changed_by_id, old_value, new_value, created_at
        FROM sla_policy_audit WHERE setor_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, sectorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PolicyAudit
	for rows.Next() {
		var audit domain.PolicyAudit
		if err := rows.Scan(
			&audit.ID,
			&audit.PolicyID,
			&audit.SectorID,
			&audit.ChangedByID,
			&audit.OldValue,
			&audit.NewValue,
			&audit.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, audit)
	}
	return result, rows.Err()
}
