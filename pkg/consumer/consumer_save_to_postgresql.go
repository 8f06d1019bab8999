package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SaveToPostgreSQL upserts records into the analytics warehouse: one row
// per record key with the record itself as JSONB.
type SaveToPostgreSQL struct {
	db       *sql.DB
	table    string
	keyField string
}

type postgresConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Table        string
	KeyField     string
}

func NewSaveToPostgreSQL(config map[string]interface{}) (*SaveToPostgreSQL, error) {
	pgConfig, err := parsePostgresConfig(config)
	if err != nil {
		return nil, err
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pgConfig.Host, pgConfig.Port, pgConfig.Username, pgConfig.Password,
		pgConfig.Database, pgConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging PostgreSQL: %w", err)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    record_key   TEXT PRIMARY KEY,
    payload      JSONB NOT NULL,
    loaded_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_%s_loaded_at ON %s(loaded_at);
`, pgConfig.Table, pgConfig.Table, pgConfig.Table)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SaveToPostgreSQL{
		db:       db,
		table:    pgConfig.Table,
		keyField: pgConfig.KeyField,
	}, nil
}

func parsePostgresConfig(config map[string]interface{}) (postgresConfig, error) {
	var pgConfig postgresConfig

	host, ok := types.GetString(config, "host")
	if !ok {
		return pgConfig, fmt.Errorf("missing host in config")
	}
	pgConfig.Host = host

	if port, ok := types.GetInt(config, "port"); ok {
		pgConfig.Port = port
	} else {
		pgConfig.Port = 5432
	}

	database, ok := types.GetString(config, "database")
	if !ok {
		return pgConfig, fmt.Errorf("missing database in config")
	}
	pgConfig.Database = database

	username, ok := types.GetString(config, "username")
	if !ok {
		return pgConfig, fmt.Errorf("missing username in config")
	}
	pgConfig.Username = username

	password, ok := types.GetString(config, "password")
	if !ok {
		return pgConfig, fmt.Errorf("missing password in config")
	}
	pgConfig.Password = password

	if sslMode, ok := types.GetString(config, "ssl_mode"); ok {
		pgConfig.SSLMode = sslMode
	} else {
		pgConfig.SSLMode = "disable"
	}

	pgConfig.MaxOpenConns = 25
	pgConfig.MaxIdleConns = 5
	if maxOpen, ok := types.GetInt(config, "max_open_conns"); ok {
		pgConfig.MaxOpenConns = maxOpen
	}
	if maxIdle, ok := types.GetInt(config, "max_idle_conns"); ok {
		pgConfig.MaxIdleConns = maxIdle
	}

	table, ok := types.GetString(config, "table")
	if !ok {
		return pgConfig, fmt.Errorf("missing table in config")
	}
	pgConfig.Table = table

	keyField, ok := types.GetString(config, "key_field")
	if !ok {
		return pgConfig, fmt.Errorf("missing key_field in config")
	}
	pgConfig.KeyField = keyField

	return pgConfig, nil
}

func (c *SaveToPostgreSQL) Name() string {
	return "SaveToPostgreSQL"
}

func (c *SaveToPostgreSQL) Load(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
        INSERT INTO %s (record_key, payload, loaded_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (record_key) DO UPDATE
        SET payload = EXCLUDED.payload, loaded_at = EXCLUDED.loaded_at`, c.table))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
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
		if _, err := stmt.ExecContext(ctx, key, payload, loadedAt); err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("[INFO] SaveToPostgreSQL loaded %d records into %s", len(records), c.table)
	return nil
}

func (c *SaveToPostgreSQL) Close() error {
	return c.db.Close()
}
