package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

// configKey is the fixed name the singleton record is stored under.
const configKey = "state"

// PostgresStore implements ConfigStore using PostgreSQL. The
// configuration lives in a single row of engine_config keyed by a fixed
// name.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed config store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, cfg *model.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	// ON CONFLICT DO NOTHING keeps the first write; a second setup
	// attempt affects zero rows.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO engine_config (name, data) VALUES ($1, $2::JSONB)
		 ON CONFLICT (name) DO NOTHING`,
		configKey, data,
	)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConfigured
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*model.Config, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM engine_config WHERE name = $1`, configKey).
		Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var cfg model.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
