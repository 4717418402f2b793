package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores leads in the support_leads table.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresStore{db: db}
}

// Create inserts a lead. The ID is generated by the dispatcher so the same
// lead can be referenced across channels.
func (s *PostgresStore) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO support_leads (id, session_id, name, contact, message, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query,
		lead.ID,
		lead.SessionID,
		lead.Name,
		lead.Contact,
		lead.Message,
		lead.Language,
		lead.CreatedAt,
	); err != nil {
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, session_id, name, contact, message, language, created_at
		FROM support_leads
		WHERE id = $1
	`
	var lead Lead
	if err := s.db.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.SessionID,
		&lead.Name,
		&lead.Contact,
		&lead.Message,
		&lead.Language,
		&lead.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	query := `
		SELECT id, session_id, name, contact, message, language, created_at
		FROM support_leads
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(
			&lead.ID,
			&lead.SessionID,
			&lead.Name,
			&lead.Contact,
			&lead.Message,
			&lead.Language,
			&lead.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, &lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}
