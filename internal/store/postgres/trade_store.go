package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"primeflip/internal/domain"
)

// TradeSessionStore implements domain.TradeSessionStore using PostgreSQL.
// Every query is scoped by user id so one user can never touch another's
// sessions.
type TradeSessionStore struct {
	pool *pgxpool.Pool
}

// NewTradeSessionStore creates a new TradeSessionStore backed by the
// given pool.
func NewTradeSessionStore(pool *pgxpool.Pool) *TradeSessionStore {
	return &TradeSessionStore{pool: pool}
}

// Create inserts a new trade session.
func (s *TradeSessionStore) Create(ctx context.Context, ts domain.TradeSession) error {
	const query = `
		INSERT INTO trade_sessions (id, user_id, item_id, item_name, item_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		ts.ID, ts.UserID, ts.ItemID, ts.ItemName, string(ts.Kind), string(ts.Status), ts.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create trade session %s: %w", ts.ID, err)
	}
	return nil
}

// Get returns one session, including its parts.
func (s *TradeSessionStore) Get(ctx context.Context, userID int64, sessionID string) (domain.TradeSession, error) {
	const query = `
		SELECT id, user_id, item_id, item_name, item_type, status, sell_price, created_at, completed_at
		FROM trade_sessions
		WHERE id = $1 AND user_id = $2`

	ts, err := scanSession(s.pool.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		return domain.TradeSession{}, err
	}
	if err := s.loadParts(ctx, &ts); err != nil {
		return domain.TradeSession{}, err
	}
	return ts, nil
}

// ListByUser returns the user's sessions, newest first, optionally
// restricted to one status.
func (s *TradeSessionStore) ListByUser(ctx context.Context, userID int64, status string) ([]domain.TradeSession, error) {
	const query = `
		SELECT id, user_id, item_id, item_name, item_type, status, sell_price, created_at, completed_at
		FROM trade_sessions
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.TradeSession
	for rows.Next() {
		ts, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trade sessions: %w", err)
	}

	for i := range sessions {
		if err := s.loadParts(ctx, &sessions[i]); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// AddPart records a part purchase in the user's session.
func (s *TradeSessionStore) AddPart(ctx context.Context, userID int64, part domain.TradePart) error {
	if err := s.assertOwned(ctx, userID, part.SessionID); err != nil {
		return err
	}
	const query = `
		INSERT INTO trade_parts (id, session_id, part_name, buy_price, seller, bought_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		part.ID, part.SessionID, part.PartName, part.BuyPrice, part.Seller, part.BoughtAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: add trade part: %w", err)
	}
	return nil
}

// SetSellPrice records the price the completed set sold (or will sell) for.
func (s *TradeSessionStore) SetSellPrice(ctx context.Context, userID int64, sessionID string, price float64) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE trade_sessions SET sell_price = $1 WHERE id = $2 AND user_id = $3",
		price, sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: set sell price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete marks the session completed.
func (s *TradeSessionStore) Complete(ctx context.Context, userID int64, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE trade_sessions SET status = $1, completed_at = NOW() WHERE id = $2 AND user_id = $3",
		string(domain.TradeStatusCompleted), sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: complete trade session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the session and, via cascade, its parts.
func (s *TradeSessionStore) Delete(ctx context.Context, userID int64, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM trade_sessions WHERE id = $1 AND user_id = $2",
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: delete trade session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TradeSessionStore) assertOwned(ctx context.Context, userID int64, sessionID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM trade_sessions WHERE id = $1 AND user_id = $2)",
		sessionID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check trade session owner: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TradeSessionStore) loadParts(ctx context.Context, ts *domain.TradeSession) error {
	const query = `
		SELECT id, session_id, part_name, buy_price, seller, bought_at
		FROM trade_parts
		WHERE session_id = $1
		ORDER BY bought_at`

	rows, err := s.pool.Query(ctx, query, ts.ID)
	if err != nil {
		return fmt.Errorf("postgres: load trade parts: %w", err)
	}
	defer rows.Close()

	ts.TotalCost = 0
	for rows.Next() {
		var p domain.TradePart
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PartName, &p.BuyPrice, &p.Seller, &p.BoughtAt); err != nil {
			return fmt.Errorf("postgres: scan trade part: %w", err)
		}
		ts.Parts = append(ts.Parts, p)
		ts.TotalCost += p.BuyPrice
	}
	return rows.Err()
}

func scanSession(row pgx.Row) (domain.TradeSession, error) {
	var ts domain.TradeSession
	var kind, status string
	var sellPrice *float64
	var completedAt *time.Time
	err := row.Scan(&ts.ID, &ts.UserID, &ts.ItemID, &ts.ItemName, &kind, &status, &sellPrice, &ts.CreatedAt, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeSession{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TradeSession{}, fmt.Errorf("postgres: scan trade session: %w", err)
	}
	ts.Kind = domain.ItemKind(kind)
	ts.Status = domain.TradeSessionStatus(status)
	ts.SetSellPrice = sellPrice
	ts.CompletedAt = completedAt
	return ts, nil
}
