// Package postgres runs relational queries against PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/refdata/internal/backend/sqlq"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
	"github.com/wonny/refdata/pkg/metrics"
)

// Querier is the subset of *pgxpool.Pool the backend needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Backend implements contracts.RelationalBackend.
type Backend struct {
	pool    Querier
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// New creates a relational backend over pool.
func New(pool Querier, log *logger.Logger, rec *metrics.Recorder) *Backend {
	return &Backend{
		pool:    pool,
		logger:  logger.OrNop(log).Component("postgres"),
		metrics: rec,
	}
}

// Query executes q and returns rows keyed by result column name.
func (b *Backend) Query(ctx context.Context, q contracts.Query) (rows []contracts.Row, err error) {
	const op = "postgres query"
	started := time.Now()
	defer func() { b.metrics.RecordQuery("postgres", q.Table, started, err) }()

	sql, args, err := sqlq.Build(q, sqlq.Dollar)
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(map[string]interface{}{
		"table": q.Table,
		"args":  len(args),
	}).Debug("Running query")

	result, err := b.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, contracts.Backend(op, fmt.Errorf("query %s: %w", q.Table, err))
	}
	defer result.Close()

	rows, err = collect(result)
	if err != nil {
		return nil, contracts.Backend(op, fmt.Errorf("scan %s: %w", q.Table, err))
	}
	return rows, nil
}

func collect(result pgx.Rows) ([]contracts.Row, error) {
	fields := result.FieldDescriptions()
	out := make([]contracts.Row, 0)
	for result.Next() {
		values, err := result.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, toRow(fields, values))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toRow(fields []pgconn.FieldDescription, values []any) contracts.Row {
	row := make(contracts.Row, len(fields))
	for i, fd := range fields {
		if i < len(values) {
			row[fd.Name] = values[i]
		}
	}
	return row
}
