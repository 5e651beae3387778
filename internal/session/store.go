package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/calchat/internal/llm"
)

// DefaultTTL is how long a transcript is kept after its last save.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// StoreType identifies a session backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeValkey StoreType = "valkey"
)

// Store persists chat transcripts.
type Store interface {
	Get(ctx context.Context, id string) ([]llm.Message, error)
	Save(ctx context.Context, id string, messages []llm.Message) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Pinger is implemented by stores that depend on a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and configures a store.
type Config struct {
	Type   StoreType
	TTL    time.Duration
	Valkey ValkeyConfig
}

// NewStore creates the store described by cfg.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", StoreTypeMemory:
		return NewMemoryStore(cfg.TTL), nil
	case StoreTypeValkey:
		return NewValkeyStore(cfg.Valkey, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session store type %q (expected memory or valkey)", cfg.Type)
	}
}
