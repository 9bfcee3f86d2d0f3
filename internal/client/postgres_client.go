package client

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fraud-detection-service/internal/config"
	"fraud-detection-service/internal/util"
)

type PostgresClient struct {
	Pool   *pgxpool.Pool
	config *config.PostgresConfig
}

// NewPostgresClient opens a pgx connection pool against the durable store.
func NewPostgresClient(cfg *config.Config, logger *zap.Logger) (*PostgresClient, error) {
	pgConfig := cfg.Postgres

	poolConfig, err := pgxpool.ParseConfig(pgConfig.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Postgres DSN: %w", err)
	}
	poolConfig.MaxConns = int32(pgConfig.MaxConns)
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	util.Info("Postgres client initialized",
		zap.Int("max_conns", pgConfig.MaxConns))

	return &PostgresClient{
		Pool:   pool,
		config: &pgConfig,
	}, nil
}

func (p *PostgresClient) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		util.Info("Postgres client closed")
	}
}

func (p *PostgresClient) HealthCheck(ctx context.Context) error {
	if err := p.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables the service relies on. Production schema
// management lives outside this service; this is a dev-bootstrap convenience.
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
  transaction_id      bigserial PRIMARY KEY,
  amount              numeric      NOT NULL,
  time_of_transaction timestamptz  NOT NULL,
  account_id          bigint       NOT NULL,
  receipient_id       bigint       NOT NULL,
  location            text         NOT NULL,
  device              text         NOT NULL,
  is_fraud            boolean      NOT NULL,
  fraud_reason        text
);
CREATE INDEX IF NOT EXISTS idx_records_account_id ON records(account_id);
CREATE INDEX IF NOT EXISTS idx_records_receipient_id ON records(receipient_id);

CREATE TABLE IF NOT EXISTS flagged_locations (
  id         bigserial PRIMARY KEY,
  location   varchar(200) NOT NULL,
  flagged_at timestamptz  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flagged_devices (
  id          bigserial PRIMARY KEY,
  device_name varchar(200) NOT NULL,
  flagged_at  timestamptz  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flagged_accounts (
  id         bigserial PRIMARY KEY,
  account_id bigint      NOT NULL,
  flagged_at timestamptz NOT NULL DEFAULT now(),
  reason     text
);
`
	if _, err := p.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
