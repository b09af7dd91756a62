package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"primeflip/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL. The
// tables are append-only; each cycle writes disjoint new rows.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// InsertBatch writes all part and set snapshots from one cycle in a
// single batch round-trip.
func (s *SnapshotStore) InsertBatch(ctx context.Context, parts []domain.PartSnapshot, sets []domain.SetSnapshot) error {
	if len(parts) == 0 && len(sets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const partQuery = `
		INSERT INTO part_snapshots (item_id, part_name, strategy, metric, price, platform, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, p := range parts {
		batch.Queue(partQuery, p.ItemID, p.PartName, p.Strategy, p.Metric, p.Price, p.Platform, p.TS)
	}

	const setQuery = `
		INSERT INTO set_snapshots (item_id, strategy, set_price, platform, ts)
		VALUES ($1, $2, $3, $4, $5)`
	for _, ss := range sets {
		batch.Queue(setQuery, ss.ItemID, ss.Strategy, ss.SetPrice, ss.Platform, ss.TS)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < len(parts)+len(sets); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert snapshot batch: %w", err)
		}
	}
	return nil
}

// ListSetSnapshots returns the most recent set snapshots for an item,
// newest first.
func (s *SnapshotStore) ListSetSnapshots(ctx context.Context, itemID string, limit int) ([]domain.SetSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, item_id, strategy, set_price, platform, ts
		FROM set_snapshots
		WHERE item_id = $1
		ORDER BY ts DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list set snapshots for %s: %w", itemID, err)
	}
	defer rows.Close()

	var out []domain.SetSnapshot
	for rows.Next() {
		var ss domain.SetSnapshot
		if err := rows.Scan(&ss.ID, &ss.ItemID, &ss.Strategy, &ss.SetPrice, &ss.Platform, &ss.TS); err != nil {
			return nil, fmt.Errorf("postgres: scan set snapshot: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// ListPartSnapshots returns part snapshots for an item since the given
// time, newest first.
func (s *SnapshotStore) ListPartSnapshots(ctx context.Context, itemID, platform string, since time.Time) ([]domain.PartSnapshot, error) {
	const query = `
		SELECT id, item_id, part_name, strategy, metric, price, platform, ts
		FROM part_snapshots
		WHERE item_id = $1 AND platform = $2 AND ts >= $3
		ORDER BY ts DESC`

	rows, err := s.pool.Query(ctx, query, itemID, platform, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list part snapshots for %s: %w", itemID, err)
	}
	defer rows.Close()

	var out []domain.PartSnapshot
	for rows.Next() {
		var ps domain.PartSnapshot
		if err := rows.Scan(&ps.ID, &ps.ItemID, &ps.PartName, &ps.Strategy, &ps.Metric, &ps.Price, &ps.Platform, &ps.TS); err != nil {
			return nil, fmt.Errorf("postgres: scan part snapshot: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// ListBefore returns all snapshots older than the cutoff, oldest first,
// for archival to blob storage.
func (s *SnapshotStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PartSnapshot, []domain.SetSnapshot, error) {
	const partQuery = `
		SELECT id, item_id, part_name, strategy, metric, price, platform, ts
		FROM part_snapshots
		WHERE ts < $1
		ORDER BY ts`
	rows, err := s.pool.Query(ctx, partQuery, before)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: list part snapshots before %s: %w", before, err)
	}
	var parts []domain.PartSnapshot
	for rows.Next() {
		var ps domain.PartSnapshot
		if err := rows.Scan(&ps.ID, &ps.ItemID, &ps.PartName, &ps.Strategy, &ps.Metric, &ps.Price, &ps.Platform, &ps.TS); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("postgres: scan part snapshot: %w", err)
		}
		parts = append(parts, ps)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	const setQuery = `
		SELECT id, item_id, strategy, set_price, platform, ts
		FROM set_snapshots
		WHERE ts < $1
		ORDER BY ts`
	rows, err = s.pool.Query(ctx, setQuery, before)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: list set snapshots before %s: %w", before, err)
	}
	defer rows.Close()
	var sets []domain.SetSnapshot
	for rows.Next() {
		var ss domain.SetSnapshot
		if err := rows.Scan(&ss.ID, &ss.ItemID, &ss.Strategy, &ss.SetPrice, &ss.Platform, &ss.TS); err != nil {
			return nil, nil, fmt.Errorf("postgres: scan set snapshot: %w", err)
		}
		sets = append(sets, ss)
	}
	return parts, sets, rows.Err()
}

// DeleteBefore removes snapshots older than the cutoff and returns the
// number of rows removed. Called only after a successful archive upload.
func (s *SnapshotStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	partTag, err := s.pool.Exec(ctx, "DELETE FROM part_snapshots WHERE ts < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete part snapshots: %w", err)
	}
	setTag, err := s.pool.Exec(ctx, "DELETE FROM set_snapshots WHERE ts < $1", before)
	if err != nil {
		return partTag.RowsAffected(), fmt.Errorf("postgres: delete set snapshots: %w", err)
	}
	return partTag.RowsAffected() + setTag.RowsAffected(), nil
}
