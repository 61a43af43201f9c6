package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// RequestFilter captures listing parameters.
type RequestFilter struct {
	CustomerID *string
	AssigneeID *string
	Statuses   []domain.RequestStatus
	Priorities []domain.RequestPriority
	Categories []domain.RequestCategory
	SearchTerm *string
	Limit      int
	Offset     int
}

// RequestRepository encapsulates request persistence. Every lifecycle
// write is a compare-and-set: ClaimAssign guards on OPEN+unassigned,
// Update guards on the status the caller validated against.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	// Update commits the request's mutable fields only while the stored
	// status still equals expected. A concurrent transition that changed
	// the status first wins and the caller receives ErrConflict, so no
	// commit ever overwrites a state it did not observe.
	Update(ctx context.Context, request *domain.Request, expected domain.RequestStatus) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	// ClaimAssign atomically sets the assignee and moves the request to
	// IN_PROGRESS, but only if it is still OPEN and unassigned at commit
	// time. Exactly one of any set of concurrent callers succeeds; the
	// rest receive ErrConflict.
	ClaimAssign(ctx context.Context, requestID, agentID string) (*domain.Request, error)
	CountByStatus(ctx context.Context, since *time.Time) (map[domain.RequestStatus]int64, error)
	// AvgFirstResponseSeconds returns the mean delay between request
	// creation and the first public agent reply, plus the sample count.
	AvgFirstResponseSeconds(ctx context.Context, since *time.Time) (float64, int64, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, external_key, customer_id, assigned_agent_id, title, description,
               status, priority, category, tags, resolution, close_reason,
               message_count, last_message_at, created_at, updated_at, completed_at, closed_at`

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (external_key, customer_id, title, description, status, priority, category, tags)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.ExternalKey,
		request.CustomerID,
		request.Title,
		request.Description,
		request.Status,
		request.Priority,
		request.Category,
		request.Tags,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request, expected domain.RequestStatus) error {
	const query = `
        UPDATE requests SET assigned_agent_id=$1, title=$2, description=$3, status=$4,
            priority=$5, category=$6, tags=$7, resolution=$8, close_reason=$9,
            completed_at=$10, closed_at=$11, updated_at=NOW()
        WHERE id=$12 AND status=$13`
	cmd, err := r.pool.Exec(ctx, query,
		request.AssignedAgentID,
		request.Title,
		request.Description,
		request.Status,
		request.Priority,
		request.Category,
		request.Tags,
		request.Resolution,
		request.CloseReason,
		request.CompletedAt,
		request.ClosedAt,
		request.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Zero rows: either the request is gone or the status moved on
		// since the caller read it.
		if _, getErr := r.GetByID(ctx, request.ID); getErr != nil {
			return getErr
		}
		return ErrConflict
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id=$1`, requestColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) ClaimAssign(ctx context.Context, requestID, agentID string) (*domain.Request, error) {
	query := fmt.Sprintf(`
        UPDATE requests SET assigned_agent_id=$2, status=$3, updated_at=NOW()
        WHERE id=$1 AND status=$4 AND assigned_agent_id IS NULL
        RETURNING %s`, requestColumns)
	request, err := r.scanOne(r.pool.QueryRow(ctx, query,
		requestID, agentID, domain.RequestStatusInProgress, domain.RequestStatusOpen))
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Zero rows: either the request is gone or someone else won the race.
	if _, getErr := r.GetByID(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Request, error) {
	request, err := r.scanOne(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return request, nil
}

func (r *requestRepository) scanOne(row pgx.Row) (*domain.Request, error) {
	var request domain.Request
	if err := row.Scan(
		&request.ID,
		&request.ExternalKey,
		&request.CustomerID,
		&request.AssignedAgentID,
		&request.Title,
		&request.Description,
		&request.Status,
		&request.Priority,
		&request.Category,
		&request.Tags,
		&request.Resolution,
		&request.CloseReason,
		&request.MessageCount,
		&request.LastMessageAt,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.CompletedAt,
		&request.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	base := fmt.Sprintf(`SELECT %s FROM requests`, requestColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, cat := range filter.Categories {
			args = append(args, cat)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRequests(rows)
}

func (r *requestRepository) scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		request, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}

func (r *requestRepository) CountByStatus(ctx context.Context, since *time.Time) (map[domain.RequestStatus]int64, error) {
	const query = `
        SELECT status, COUNT(*) FROM requests
        WHERE ($1::timestamptz IS NULL OR created_at >= $1)
        GROUP BY status`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int64)
	for rows.Next() {
		var status domain.RequestStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *requestRepository) AvgFirstResponseSeconds(ctx context.Context, since *time.Time) (float64, int64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM fr.first_reply - r.created_at)), 0), COUNT(*)
        FROM requests r
        JOIN LATERAL (
            SELECT MIN(m.created_at) AS first_reply
            FROM request_messages m
            WHERE m.request_id = r.id AND m.sender_role = $1 AND m.internal = FALSE
        ) fr ON fr.first_reply IS NOT NULL
        WHERE ($2::timestamptz IS NULL OR r.created_at >= $2)`
	var avg float64
	var samples int64
	if err := r.pool.QueryRow(ctx, query, domain.SenderRoleAgent, since).Scan(&avg, &samples); err != nil {
		return 0, 0, err
	}
	return avg, samples, nil
}
