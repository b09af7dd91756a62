package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"primeflip/internal/domain"
)

// CatalogStore implements domain.CatalogStore using PostgreSQL.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a new CatalogStore backed by the given pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// ListEnabled returns all enabled tracked items in catalog order.
func (s *CatalogStore) ListEnabled(ctx context.Context) ([]domain.TrackedItem, error) {
	const query = `
		SELECT id, name, parts, item_type, is_prime, enabled
		FROM tracked_items
		WHERE enabled
		ORDER BY position, id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tracked items: %w", err)
	}
	defer rows.Close()

	var items []domain.TrackedItem
	for rows.Next() {
		var it domain.TrackedItem
		var kind string
		if err := rows.Scan(&it.ID, &it.Name, &it.Parts, &kind, &it.Prime, &it.Enabled); err != nil {
			return nil, fmt.Errorf("postgres: scan tracked item: %w", err)
		}
		it.Kind = domain.ItemKind(kind)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list tracked items: %w", err)
	}
	return items, nil
}

// Get returns one tracked item by id.
func (s *CatalogStore) Get(ctx context.Context, id string) (domain.TrackedItem, error) {
	const query = `
		SELECT id, name, parts, item_type, is_prime, enabled
		FROM tracked_items
		WHERE id = $1`

	var it domain.TrackedItem
	var kind string
	err := s.pool.QueryRow(ctx, query, id).Scan(&it.ID, &it.Name, &it.Parts, &kind, &it.Prime, &it.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TrackedItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TrackedItem{}, fmt.Errorf("postgres: get tracked item %s: %w", id, err)
	}
	it.Kind = domain.ItemKind(kind)
	return it, nil
}

// Seed inserts the given items if the catalog is empty. An already-seeded
// catalog is left untouched so operator edits survive restarts.
func (s *CatalogStore) Seed(ctx context.Context, items []domain.TrackedItem) error {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tracked_items").Scan(&count); err != nil {
		return fmt.Errorf("postgres: count tracked items: %w", err)
	}
	if count > 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO tracked_items (id, name, parts, item_type, is_prime, enabled, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`
	for i, it := range items {
		batch.Queue(query, it.ID, it.Name, it.Parts, string(it.Kind), it.Prime, it.Enabled, i)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: seed catalog: %w", err)
		}
	}
	return nil
}
