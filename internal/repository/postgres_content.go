package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kidneyguard-data/internal/domain"
)

// PostgresContentRepository 教育内容Repository实现
type PostgresContentRepository struct {
	db *sql.DB
}

func NewPostgresContentRepository(db *sql.DB) *PostgresContentRepository {
	return &PostgresContentRepository{db: db}
}

var _ ContentRepository = (*PostgresContentRepository)(nil)

func (r *PostgresContentRepository) ListModules(ctx context.Context) ([]*domain.ContentModule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT module_id::text, slug, title, topic, summary, body, sort_order, updated_at
		FROM education_content
		ORDER BY sort_order, slug
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list content modules: %w", err)
	}
	defer rows.Close()

	var modules []*domain.ContentModule
	for rows.Next() {
		var m domain.ContentModule
		if err := rows.Scan(&m.ModuleID, &m.Slug, &m.Title, &m.Topic,
			&m.Summary, &m.Body, &m.SortOrder, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content module: %w", err)
		}
		modules = append(modules, &m)
	}
	return modules, rows.Err()
}

func (r *PostgresContentRepository) GetModule(ctx context.Context, slug string) (*domain.ContentModule, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, sql.ErrNoRows
	}

	var m domain.ContentModule
	err := r.db.QueryRowContext(ctx, `
		SELECT module_id::text, slug, title, topic, summary, body, sort_order, updated_at
		FROM education_content
		WHERE slug = $1
	`, slug).Scan(&m.ModuleID, &m.Slug, &m.Title, &m.Topic,
		&m.Summary, &m.Body, &m.SortOrder, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
