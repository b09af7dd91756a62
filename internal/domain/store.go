package domain

import (
	"context"
	"io"
	"time"
)

// CatalogStore provides read access to the tracked-item catalog and owns
// seeding. The scheduler only ever reads from it.
type CatalogStore interface {
	// ListEnabled returns all enabled tracked items in catalog order.
	ListEnabled(ctx context.Context) ([]TrackedItem, error)
	// Get returns one tracked item by id.
	Get(ctx context.Context, id string) (TrackedItem, error)
	// Seed inserts the default catalog when the store is empty.
	Seed(ctx context.Context, items []TrackedItem) error
}

// SnapshotStore persists the append-only price-metric time series.
type SnapshotStore interface {
	// InsertBatch writes all part and set snapshots from one cycle.
	InsertBatch(ctx context.Context, parts []PartSnapshot, sets []SetSnapshot) error
	// ListSetSnapshots returns the most recent set snapshots for an item,
	// newest first.
	ListSetSnapshots(ctx context.Context, itemID string, limit int) ([]SetSnapshot, error)
	// ListPartSnapshots returns part snapshots for an item since the given
	// time, newest first.
	ListPartSnapshots(ctx context.Context, itemID, platform string, since time.Time) ([]PartSnapshot, error)
	// ListBefore returns snapshots older than the cutoff, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]PartSnapshot, []SetSnapshot, error)
	// DeleteBefore removes snapshots older than the cutoff after they have
	// been archived.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// UserStore persists registered accounts.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
}

// TradeSessionStore persists manually tracked trade sessions.
type TradeSessionStore interface {
	Create(ctx context.Context, s TradeSession) error
	Get(ctx context.Context, userID int64, sessionID string) (TradeSession, error)
	ListByUser(ctx context.Context, userID int64, status string) ([]TradeSession, error)
	AddPart(ctx context.Context, userID int64, part TradePart) error
	SetSellPrice(ctx context.Context, userID int64, sessionID string, price float64) error
	Complete(ctx context.Context, userID int64, sessionID string) error
	Delete(ctx context.Context, userID int64, sessionID string) error
}

// OpportunityCache shares the latest opportunity set across processes so
// server-only replicas can answer queries without running the scheduler.
type OpportunityCache interface {
	SetCurrent(ctx context.Context, set *OpportunitySet) error
	GetCurrent(ctx context.Context) (*OpportunitySet, error)
}

// SignalBus mirrors market updates and alerts onto an external pub/sub
// channel for consumers outside this process.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged snapshot rows to blob storage.
type Archiver interface {
	// ArchiveSnapshots uploads all snapshots older than the cutoff and
	// returns the number of rows archived.
	ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error)
}
