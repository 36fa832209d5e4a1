package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-service/internal/domain"
)

// EvaluationFilter narrows the tickets loaded for a compliance snapshot. Only
// the creation window and sector are filtered here; status and priority rules
// belong to the SLA engine.
type EvaluationFilter struct {
	SectorID    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CacheKey renders the filter as a stable string.
func (f EvaluationFilter) CacheKey() string {
	parts := []string{"all", "-", "-"}
	if f.SectorID != nil {
		parts[0] = *f.SectorID
	}
	if f.CreatedFrom != nil {
		parts[1] = f.CreatedFrom.UTC().Format(time.RFC3339Nano)
	}
	if f.CreatedTo != nil {
		parts[2] = f.CreatedTo.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join(parts, "|")
}

// TicketCursor is the keyset position of the last ticket read in a page.
type TicketCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor positioned on ticket.
func CursorAfter(ticket domain.Ticket) *TicketCursor {
	return &TicketCursor{CreatedAt: ticket.CreatedAt, ID: ticket.ID}
}

// TicketRepository reads the ticket fields the SLA engine needs.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListForEvaluation(ctx context.Context, filter EvaluationFilter) ([]domain.Ticket, error)
	ListUnresolvedSince(ctx context.Context, since time.Time, after *TicketCursor, limit int) ([]domain.Ticket, error)
	UpdateInternalDeadline(ctx context.Context, id string, deadline *time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, sector_id, title, priority, status, internal_deadline, resolved_at, created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) ListForEvaluation(ctx context.Context, filter EvaluationFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SectorID != nil {
		args = append(args, *filter.SectorID)
		clauses = append(clauses, fmt.Sprintf("sector_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListUnresolvedSince pages through unresolved tickets created at or after
// since, ordered by (created_at, id). Pass the cursor of the last ticket of
// the previous page to continue.
func (r *ticketRepository) ListUnresolvedSince(ctx context.Context, since time.Time, after *TicketCursor, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 1000
	}
	args := []any{since}
	clauses := []string{
		"created_at >= $1",
		"(status IN ('open','in_progress') OR resolved_at IS NULL)",
	}
	if after != nil {
		args = append(args, after.CreatedAt, after.ID)
		clauses = append(clauses, fmt.Sprintf("(created_at, id) > ($%d, $%d::uuid)", len(args)-1, len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE %s
        ORDER BY created_at ASC, id ASC LIMIT $%d`, ticketColumns, strings.Join(clauses, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateInternalDeadline(ctx context.Context, id string, deadline *time.Time) error {
	const query = `UPDATE tickets SET internal_deadline=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, deadline, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.SectorID,
			&ticket.Title,
			&ticket.Priority,
			&ticket.Status,
			&ticket.InternalDeadline,
			&ticket.ResolvedAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
