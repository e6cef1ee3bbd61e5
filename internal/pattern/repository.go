package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no stored pattern has the requested id.
var ErrNotFound = errors.New("pattern not found")

type Repository interface {
	Save(ctx context.Context, p *Pattern) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pattern, error)
	List(ctx context.Context, f Filter) ([]*Pattern, error)
	Update(ctx context.Context, id uuid.UUID, u Update) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Row is the database representation with JSONB fields as raw bytes.
type Row struct {
	ID                   uuid.UUID
	ActionType           string
	Hostname             string
	Payload              []byte
	Selector             string
	Context              []byte
	Confidence           float64
	UsageCount           int
	SuccessfulExecutions int
	ExecutionHistory     []byte
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const selectColumns = `id, action_type, hostname, payload, selector, context, confidence,
		usage_count, successful_executions, execution_history, created_at, updated_at`

func (r *postgresRepository) Save(ctx context.Context, p *Pattern) error {
	row, err := toRow(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO automation_patterns (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		row.ID, row.ActionType, row.Hostname, row.Payload, row.Selector, row.Context,
		row.Confidence, row.UsageCount, row.SuccessfulExecutions, row.ExecutionHistory,
		row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting pattern: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Pattern, error) {
	query := `SELECT ` + selectColumns + ` FROM automation_patterns WHERE id = $1`

	row, err := scanRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying pattern by id: %w", err)
	}
	return fromRow(row)
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]*Pattern, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if f.ActionType != "" {
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", argIdx))
		args = append(args, string(f.ActionType))
		argIdx++
	}
	if f.Hostname != "" {
		conditions = append(conditions, fmt.Sprintf("hostname = $%d", argIdx))
		args = append(args, strings.ToLower(f.Hostname))
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Storage order is the tie-break order for matching.
	query := fmt.Sprintf(`SELECT %s FROM automation_patterns %s ORDER BY created_at ASC, id ASC`,
		selectColumns, where)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*Pattern
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pattern row: %w", err)
		}
		p, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, u Update) error {
	var sets []string
	var args []any
	argIdx := 1

	add := func(column string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, v)
		argIdx++
	}

	if u.Selector != nil {
		add("selector", *u.Selector)
	}
	if u.Confidence != nil {
		add("confidence", *u.Confidence)
	}
	if u.UsageCount != nil {
		add("usage_count", *u.UsageCount)
	}
	if u.SuccessfulExecutions != nil {
		add("successful_executions", *u.SuccessfulExecutions)
	}
	if u.ExecutionHistory != nil {
		history, err := json.Marshal(*u.ExecutionHistory)
		if err != nil {
			return fmt.Errorf("marshaling execution history: %w", err)
		}
		add("execution_history", history)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now())

	query := fmt.Sprintf(`UPDATE automation_patterns SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating pattern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM automation_patterns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting pattern: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRow(s pgx.Row) (*Row, error) {
	row := &Row{}
	err := s.Scan(
		&row.ID, &row.ActionType, &row.Hostname, &row.Payload, &row.Selector, &row.Context,
		&row.Confidence, &row.UsageCount, &row.SuccessfulExecutions, &row.ExecutionHistory,
		&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func toRow(p *Pattern) (*Row, error) {
	payload, err := json.Marshal(defaultMap(p.Payload))
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	pageCtx, err := json.Marshal(p.Context)
	if err != nil {
		return nil, fmt.Errorf("marshaling context: %w", err)
	}
	history := p.ExecutionHistory
	if history == nil {
		history = []ExecutionRecord{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshaling execution history: %w", err)
	}

	return &Row{
		ID:                   p.ID,
		ActionType:           string(p.ActionType),
		Hostname:             strings.ToLower(p.Context.Hostname),
		Payload:              payload,
		Selector:             p.Selector,
		Context:              pageCtx,
		Confidence:           p.Confidence,
		UsageCount:           p.UsageCount,
		SuccessfulExecutions: p.SuccessfulExecutions,
		ExecutionHistory:     historyJSON,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

func fromRow(row *Row) (*Pattern, error) {
	p := &Pattern{
		ID:                   row.ID,
		ActionType:           ActionType(row.ActionType),
		Selector:             row.Selector,
		Confidence:           row.Confidence,
		UsageCount:           row.UsageCount,
		SuccessfulExecutions: row.SuccessfulExecutions,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Payload, &p.Payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload: %w", err)
	}
	if err := json.Unmarshal(row.Context, &p.Context); err != nil {
		return nil, fmt.Errorf("unmarshaling context: %w", err)
	}
	if len(row.ExecutionHistory) > 0 {
		if err := json.Unmarshal(row.ExecutionHistory, &p.ExecutionHistory); err != nil {
			return nil, fmt.Errorf("unmarshaling execution history: %w", err)
		}
	}
	if p.ExecutionHistory == nil {
		p.ExecutionHistory = []ExecutionRecord{}
	}
	p.Payload = defaultMap(p.Payload)
	return p, nil
}

func defaultMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
