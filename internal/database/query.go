// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/metrics"
	"github.com/datagate/datagate/internal/models"
)

// identifierPattern restricts table names to plain SQL identifiers.
// Defense in depth behind the allow-list: even an allow-listed name that
// somehow carries quoting characters is rejected before reaching the query.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QueryExecutor runs bounded reads against allow-listed pipeline tables.
type QueryExecutor struct {
	db           *DB
	defaultTable string
	allowed      map[string]struct{}
}

// NewQueryExecutor builds an executor restricted to the destination table
// plus any explicitly allowed tables.
func NewQueryExecutor(db *DB, defaultTable string, allowedTables []string) *QueryExecutor {
	allowed := make(map[string]struct{}, len(allowedTables)+1)
	allowed[defaultTable] = struct{}{}
	for _, t := range allowedTables {
		allowed[t] = struct{}{}
	}
	return &QueryExecutor{
		db:           db,
		defaultTable: defaultTable,
		allowed:      allowed,
	}
}

// DefaultTable returns the table queried when a request names none.
func (q *QueryExecutor) DefaultTable() string {
	return q.defaultTable
}

// IsAllowed reports whether clients may query the named table.
func (q *QueryExecutor) IsAllowed(table string) bool {
	if !identifierPattern.MatchString(table) {
		return false
	}
	_, ok := q.allowed[table]
	return ok
}

// FetchRows reads up to limit rows from the named table. The table must be
// on the allow-list; every execution failure is wrapped in *QueryError.
func (q *QueryExecutor) FetchRows(ctx context.Context, table string, limit int) ([]models.Record, error) {
	if !q.IsAllowed(table) {
		return nil, fmt.Errorf("%w: %q", ErrTableNotAllowed, table)
	}

	ctx, cancel := q.db.ensureContext(ctx)
	defer cancel()

	start := time.Now()

	// Table identity is allow-listed and pattern-checked above; the limit
	// stays a bound parameter.
	query := fmt.Sprintf(`SELECT * FROM "%s" LIMIT ?`, table)

	rows, err := q.db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		metrics.RecordDBQuery("select", table, time.Since(start), err)
		return nil, newQueryError(table, "query", err)
	}
	defer closeWithLog(rows, "rows")

	columns, err := rows.Columns()
	if err != nil {
		metrics.RecordDBQuery("select", table, time.Since(start), err)
		return nil, newQueryError(table, "columns", err)
	}

	records := make([]models.Record, 0, limit)
	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			metrics.RecordDBQuery("select", table, time.Since(start), err)
			return nil, newQueryError(table, "scan", err)
		}

		record := make(models.Record, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", table, time.Since(start), err)
		return nil, newQueryError(table, "iterate", err)
	}

	metrics.RecordDBQuery("select", table, time.Since(start), nil)
	metrics.DBRowsReturned.WithLabelValues(table).Observe(float64(len(records)))

	if len(records) == 0 {
		logging.Warn().Str("table", table).Msg("Query returned no rows")
	}

	return records, nil
}

// normalizeValue converts driver-specific scan values into JSON-friendly types.
// DuckDB returns VARCHAR columns as []byte through database/sql.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
