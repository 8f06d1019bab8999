package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SQLiteSource reads from a local SQLite database, the storage the field
// apps sync their bookings into.
type SQLiteSource struct {
	name  string
	db    *sql.DB
	query string
}

func NewSQLiteSource(config map[string]interface{}) (*SQLiteSource, error) {
	name, ok := types.GetString(config, "name")
	if !ok {
		return nil, errors.New("name must be specified")
	}

	dbPath, ok := types.GetString(config, "db_path")
	if !ok {
		return nil, errors.New("db_path must be specified")
	}

	table, _ := types.GetString(config, "table")
	query, _ := types.GetString(config, "query")
	orderBy, _ := types.GetString(config, "order_by")
	if table == "" && query == "" {
		return nil, errors.New("either table or query must be specified")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}

	return &SQLiteSource{
		name:  name,
		db:    db,
		query: buildSelect(table, query, orderBy),
	}, nil
}

func (s *SQLiteSource) Name() string {
	return s.name
}

func (s *SQLiteSource) Extract(ctx context.Context) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query failed for source %s: %w", s.name, err)
	}
	defer rows.Close()

	return scanRows(ctx, rows)
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
