package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ClassificationCode is one stored NAICS or PSC code row.
type ClassificationCode struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// CodeStore reads and manages classification codes. It satisfies the fetch
// package's CodeSource interface.
type CodeStore struct {
	pool *pgxpool.Pool
}

func NewCodeStore(pool *pgxpool.Pool) *CodeStore {
	return &CodeStore{pool: pool}
}

// EnabledCodes returns the enabled codes of one type in insertion order.
func (s *CodeStore) EnabledCodes(ctx context.Context, codeType string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT code FROM classification_codes WHERE code_type = $1 AND enabled ORDER BY id", codeType)
	if err != nil {
		return nil, fmt.Errorf("query enabled codes failed: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code failed: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return codes, nil
}

// List returns every stored code, optionally filtered by type ("" means all).
func (s *CodeStore) List(ctx context.Context, codeType string) ([]ClassificationCode, error) {
	query := "SELECT id, code, code_type, description, enabled, created_at FROM classification_codes"
	var args []any
	if codeType != "" {
		query += " WHERE code_type = $1"
		args = append(args, codeType)
	}
	query += " ORDER BY code_type, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list codes failed: %w", err)
	}
	defer rows.Close()

	var codes []ClassificationCode
	for rows.Next() {
		var c ClassificationCode
		if err := rows.Scan(&c.ID, &c.Code, &c.Type, &c.Description, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan code row failed: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return codes, nil
}

// Add inserts a code, re-enabling it if it already exists.
func (s *CodeStore) Add(ctx context.Context, code, codeType, description string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classification_codes (code, code_type, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (code, code_type)
		DO UPDATE SET enabled = TRUE, description = EXCLUDED.description
	`, code, codeType, description)
	if err != nil {
		return fmt.Errorf("add code %s failed: %w", code, err)
	}
	return nil
}

// SetEnabled toggles one code and reports whether a row matched.
func (s *CodeStore) SetEnabled(ctx context.Context, code, codeType string, enabled bool) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE classification_codes SET enabled = $3 WHERE code = $1 AND code_type = $2",
		code, codeType, enabled)
	if err != nil {
		return false, fmt.Errorf("toggle code %s failed: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}
