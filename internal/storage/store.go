package storage

import (
	"context"

	c "github.com/classpad/boardsync/internal/common"
)

// SnapshotStore is the seam to an external durable store. The relay
// loads a board when a room is first created and saves it when the
// last member leaves; everything in between is in-memory only.
type SnapshotStore interface {
	// Load returns the saved document for a room, or nil when there
	// is none.
	Load(ctx context.Context, roomID string) ([]c.Record, error)
	Save(ctx context.Context, roomID string, records []c.Record) error
}

// Noop keeps rooms purely in-memory.
type Noop struct{}

func (Noop) Load(context.Context, string) ([]c.Record, error) { return nil, nil }

func (Noop) Save(context.Context, string, []c.Record) error { return nil }
