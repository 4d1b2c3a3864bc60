package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/onemorerev/client/internal/database"
	"github.com/onemorerev/client/internal/storage"
)

// Snapshot is one stored response.
type Snapshot struct {
	Kind      string         `gorm:"primaryKey;size:32"`
	Key       string         `gorm:"primaryKey;size:128"`
	Payload   datatypes.JSON `gorm:"not null"`
	FetchedAt time.Time      `gorm:"not null;index"`
}

func (Snapshot) TableName() string {
	return "omr_snapshots"
}

// Backend stores snapshots in a SQL database through gorm.
type Backend struct {
	db  *database.Manager
	now func() time.Time
}

// New creates a backend over an already opened database manager.
func New(db *database.Manager) *Backend {
	return &Backend{db: db, now: time.Now}
}

func (b *Backend) Init() error {
	return b.db.Migrate(&Snapshot{})
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Save(ctx context.Context, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	snap := Snapshot{Kind: kind, Key: key, Payload: datatypes.JSON(data), FetchedAt: b.now()}
	err = b.db.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at"}),
	}).Create(&snap).Error
	if err != nil {
		b.db.Logger.Error().Err(err).Str("kind", kind).Str("key", key).Msg("Failed to save snapshot")
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (b *Backend) Load(ctx context.Context, kind, key string, out any) (time.Time, error) {
	var snap Snapshot
	err := b.db.DB.WithContext(ctx).Where(&Snapshot{Kind: kind, Key: key}).Take(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal(snap.Payload, out); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap.FetchedAt, nil
}
