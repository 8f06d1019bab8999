package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SaveToSQLite upserts records into a local SQLite database, keyed by the
// configured key_field; the full record is stored as a JSON payload next
// to the key, so every pipeline writes the same shape regardless of its
// source schema.
type SaveToSQLite struct {
	db       *sql.DB
	table    string
	keyField string
}

func NewSaveToSQLite(config map[string]interface{}) (*SaveToSQLite, error) {
	dbPath, ok := types.GetString(config, "db_path")
	if !ok {
		return nil, fmt.Errorf("db_path must be specified")
	}

	table, ok := types.GetString(config, "table")
	if !ok {
		table = "records"
	}

	keyField, ok := types.GetString(config, "key_field")
	if !ok {
		return nil, fmt.Errorf("key_field must be specified")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set SQLite pragmas: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            record_key TEXT NOT NULL PRIMARY KEY,
            payload TEXT NOT NULL,
            loaded_at TIMESTAMP NOT NULL,

            CHECK (length(record_key) > 0)
        );
    `, table))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return &SaveToSQLite{
		db:       db,
		table:    table,
		keyField: keyField,
	}, nil
}

func (c *SaveToSQLite) Name() string {
	return "SaveToSQLite"
}

func (c *SaveToSQLite) Load(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (record_key, payload, loaded_at) VALUES (?, ?, ?)", c.table))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	loadedAt := time.Now().UTC()
	for _, rec := range records {
		key, err := recordKey(rec, c.keyField)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(payload), loadedAt); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("[INFO] SaveToSQLite loaded %d records into %s", len(records), c.table)
	return nil
}

func (c *SaveToSQLite) Close() error {
	return c.db.Close()
}
