// Package store persists the engine's configuration singleton.
// Implementations include PostgreSQL (source of truth) and in-memory
// (for testing). The configuration is written exactly once at setup and
// read on every operation; no update operation exists.
package store

import (
	"context"
	"errors"

	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

var (
	// ErrNotConfigured is returned when setup has not run yet.
	ErrNotConfigured = errors.New("store: engine is not configured")

	// ErrAlreadyConfigured is returned when setup runs a second time.
	ErrAlreadyConfigured = errors.New("store: configuration already written")
)

// ConfigStore holds the singleton configuration under a fixed key.
type ConfigStore interface {
	// Save writes the configuration. Fails with ErrAlreadyConfigured if
	// one exists; the record is immutable once written.
	Save(ctx context.Context, cfg *model.Config) error

	// Load reads the configuration, or ErrNotConfigured.
	Load(ctx context.Context) (*model.Config, error)
}
