package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// PostgresSource reads a whole table (or a configured query) from the
// operational Postgres database.
type PostgresSource struct {
	name  string
	db    *sql.DB
	query string
}

type postgresSourceConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	Table    string
	Query    string
	OrderBy  string
}

func NewPostgresSource(config map[string]interface{}) (*PostgresSource, error) {
	name, ok := types.GetString(config, "name")
	if !ok {
		return nil, errors.New("name must be specified")
	}

	pgConfig, err := parsePostgresSourceConfig(config)
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
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging PostgreSQL: %w", err)
	}

	return &PostgresSource{
		name:  name,
		db:    db,
		query: buildSelect(pgConfig.Table, pgConfig.Query, pgConfig.OrderBy),
	}, nil
}

func parsePostgresSourceConfig(config map[string]interface{}) (postgresSourceConfig, error) {
	var pgConfig postgresSourceConfig

	host, ok := types.GetString(config, "host")
	if !ok {
		return pgConfig, errors.New("missing host in config")
	}
	pgConfig.Host = host

	if port, ok := types.GetInt(config, "port"); ok {
		pgConfig.Port = port
	} else {
		pgConfig.Port = 5432
	}

	database, ok := types.GetString(config, "database")
	if !ok {
		return pgConfig, errors.New("missing database in config")
	}
	pgConfig.Database = database

	username, ok := types.GetString(config, "username")
	if !ok {
		return pgConfig, errors.New("missing username in config")
	}
	pgConfig.Username = username

	password, ok := types.GetString(config, "password")
	if !ok {
		return pgConfig, errors.New("missing password in config")
	}
	pgConfig.Password = password

	if sslMode, ok := types.GetString(config, "ssl_mode"); ok {
		pgConfig.SSLMode = sslMode
	} else {
		pgConfig.SSLMode = "disable"
	}

	pgConfig.Table, _ = types.GetString(config, "table")
	pgConfig.Query, _ = types.GetString(config, "query")
	pgConfig.OrderBy, _ = types.GetString(config, "order_by")
	if pgConfig.Table == "" && pgConfig.Query == "" {
		return pgConfig, errors.New("either table or query must be specified")
	}

	return pgConfig, nil
}

func (s *PostgresSource) Name() string {
	return s.name
}

func (s *PostgresSource) Extract(ctx context.Context) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query failed for source %s: %w", s.name, err)
	}
	defer rows.Close()

	return scanRows(ctx, rows)
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}
