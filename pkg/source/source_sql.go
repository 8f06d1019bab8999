package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// scanRows converts a generic result set into records. Column types are
// whatever the driver hands back; []byte values become strings so CSV and
// SQL sources produce the same shapes.
func scanRows(ctx context.Context, rows *sql.Rows) ([]types.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []types.Record
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(types.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
			} else {
				rec[col] = values[i]
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return records, nil
}

func buildSelect(table, query, orderBy string) string {
	if query != "" {
		return query
	}
	q := fmt.Sprintf("SELECT * FROM %s", table)
	if orderBy != "" {
		q += fmt.Sprintf(" ORDER BY %s", orderBy)
	}
	return q
}
