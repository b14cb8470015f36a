package repository

import (
	"context"
	"errors"
	"fmt"

	"pressroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContentRepository reads content rows for snapshot resolution. Content CRUD
// lives in the page routes; the publishing engine only ever reads.
type ContentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Content, error)
}

type contentRepo struct {
	pool *pgxpool.Pool
}

// NewContentRepo creates a new ContentRepository.
func NewContentRepo(pool *pgxpool.Pool) ContentRepository {
	return &contentRepo{pool: pool}
}

func (r *contentRepo) GetByID(ctx context.Context, id string) (*model.Content, error) {
	const q = `
        SELECT id, tenant_id, title, body, media_keys, created_at, updated_at, deleted_at
        FROM contents
        WHERE id = $1 AND deleted_at IS NULL
    `
	var c model.Content
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&c.ID,
		&c.TenantID,
		&c.Title,
		&c.Body,
		&c.MediaKeys,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch content %s: %w", id, err)
	}
	return &c, nil
}
