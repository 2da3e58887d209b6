// Package clickhouse runs relational queries against ClickHouse through database/sql.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wonny/refdata/internal/backend/sqlq"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

// Querier is the subset of *sql.DB the backend needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Backend implements contracts.RelationalBackend.
type Backend struct {
	db      Querier
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// New creates a relational backend over db.
func New(db Querier, log *logger.Logger, rec *metrics.Recorder) *Backend {
	return &Backend{
		db:      db,
		logger:  logger.OrNop(log).Component("clickhouse"),
		metrics: rec,
	}
}

// Query executes q and returns rows keyed by result column name.
func (b *Backend) Query(ctx context.Context, q contracts.Query) (rows []contracts.Row, err error) {
	const op = "clickhouse query"
	started := time.Now()
	defer func() { b.metrics.RecordQuery("clickhouse", q.Table, started, err) }()

	query, args, err := sqlq.Build(q, sqlq.Question)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(map[string]interface{}{
		"table": q.Table,
		"args":  len(args),
	}).Debug("Running query")

	result, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contracts.Backend(op, fmt.Errorf("query %s: %w", q.Table, err))
	}
	defer result.Close()

	rows, err = scanRows(result)
	if err != nil {
		return nil, contracts.Backend(op, fmt.Errorf("scan %s: %w", q.Table, err))
	}
	return rows, nil
}

// rowScanner is the part of *sql.Rows used for scanning.
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRows(result rowScanner) ([]contracts.Row, error) {
	cols, err := result.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]contracts.Row, 0)
	for result.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := result.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(contracts.Row, len(cols))
		for i, c := range cols {
			row[c] = deref(values[i])
		}
		out = append(out, row)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// deref unwraps the pointer types the driver uses for Nullable columns.
func deref(v any) any {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}
