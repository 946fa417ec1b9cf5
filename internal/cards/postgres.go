package cards

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS hs_cards (
	card_id    TEXT PRIMARY KEY,
	dbf_id     INTEGER NOT NULL DEFAULT 0,
	name       TEXT NOT NULL,
	rules_text TEXT NOT NULL DEFAULT '',
	cost       INTEGER NOT NULL DEFAULT 0,
	card_type  TEXT NOT NULL DEFAULT '',
	card_class TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS hs_cards_dbf_id_idx ON hs_cards (dbf_id);
`

// PostgresStore persists the card table in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to databaseURL and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the card table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LoadAll returns every stored card.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Card, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT card_id, dbf_id, name, rules_text, cost, card_type, card_class
		FROM hs_cards ORDER BY card_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.DBFID, &c.Name, &c.Text, &c.Cost, &c.Type, &c.Class); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	s.logger.Info("loaded cards from postgres", zap.Int("count", len(out)))
	return out, nil
}

// Get returns one card by id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (Card, error) {
	var c Card
	err := s.pool.QueryRow(ctx, `
		SELECT card_id, dbf_id, name, rules_text, cost, card_type, card_class
		FROM hs_cards WHERE card_id = $1`, id).
		Scan(&c.ID, &c.DBFID, &c.Name, &c.Text, &c.Cost, &c.Type, &c.Class)
	if errors.Is(err, pgx.ErrNoRows) {
		return Card{}, ErrNotFound
	}
	if err != nil {
		return Card{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return c, nil
}

// Upsert writes cards in batches of batchSize inside one transaction per batch.
// It returns the number of cards written.
func (s *PostgresStore) Upsert(ctx context.Context, list []Card, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	written := 0
	for i := 0; i < len(list); i += batchSize {
		end := min(i+batchSize, len(list))

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return written, fmt.Errorf("failed to begin transaction: %w", err)
		}

		batch := &pgx.Batch{}
		for _, c := range list[i:end] {
			batch.Queue(`
				INSERT INTO hs_cards (card_id, dbf_id, name, rules_text, cost, card_type, card_class)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (card_id) DO UPDATE SET
					dbf_id = EXCLUDED.dbf_id,
					name = EXCLUDED.name,
					rules_text = EXCLUDED.rules_text,
					cost = EXCLUDED.cost,
					card_type = EXCLUDED.card_type,
					card_class = EXCLUDED.card_class`,
				c.ID, c.DBFID, c.Name, c.Text, c.Cost, c.Type, c.Class)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			_ = tx.Rollback(ctx)
			return written, fmt.Errorf("failed to write batch: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return written, fmt.Errorf("failed to commit batch: %w", err)
		}
		written += end - i

		s.logger.Debug("upserted card batch",
			zap.Int("written", written),
			zap.Int("total", len(list)),
		)
	}
	return written, nil
}
