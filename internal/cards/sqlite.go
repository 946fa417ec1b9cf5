package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
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

// SQLiteStore keeps a local card cache in a SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the card cache at path and applies the schema.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadAll returns every stored card.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, dbf_id, name, rules_text, cost, card_type, card_class
		FROM hs_cards ORDER BY card_id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.DBFID, &c.Name, &c.Text, &c.Cost, &c.Type, &c.Class); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}

	s.logger.Info("loaded cards from sqlite", zap.Int("count", len(out)))
	return out, nil
}

// Get returns one card by id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Card, error) {
	var c Card
	err := s.db.QueryRowContext(ctx, `
		SELECT card_id, dbf_id, name, rules_text, cost, card_type, card_class
		FROM hs_cards WHERE card_id = ?`, id).
		Scan(&c.ID, &c.DBFID, &c.Name, &c.Text, &c.Cost, &c.Type, &c.Class)
	if errors.Is(err, sql.ErrNoRows) {
		return Card{}, ErrNotFound
	}
	if err != nil {
		return Card{}, fmt.Errorf("get card %s: %w", id, err)
	}
	return c, nil
}

// Upsert writes all cards in a single transaction and returns how many were written.
func (s *SQLiteStore) Upsert(ctx context.Context, list []Card) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hs_cards (card_id, dbf_id, name, rules_text, cost, card_type, card_class)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (card_id) DO UPDATE SET
			dbf_id = excluded.dbf_id,
			name = excluded.name,
			rules_text = excluded.rules_text,
			cost = excluded.cost,
			card_type = excluded.card_type,
			card_class = excluded.card_class`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range list {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DBFID, c.Name, c.Text, c.Cost, c.Type, c.Class); err != nil {
			return 0, fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("upserted cards", zap.Int("count", len(list)))
	return len(list), nil
}
