// Package docstore keeps dated snapshot documents in a PostgreSQL JSONB table.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/refdata/internal/backend/sqlq"
	"github.com/wonny/refdata/internal/contracts"
	"github.com/wonny/refdata/pkg/logger"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements contracts.DocumentBackend.
type Store struct {
	db     Querier
	table  string
	logger *logger.Logger
}

// New creates a document store over table.
func New(db Querier, table string, log *logger.Logger) (*Store, error) {
	if !sqlq.ValidIdentifier(table) {
		return nil, contracts.Configuration("new document store", "invalid table name %q", table)
	}
	return &Store{db: db, table: table, logger: logger.OrNop(log).Component("docstore")}, nil
}

// EnsureSchema creates the document table and its lookup index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         BIGSERIAL PRIMARY KEY,
				collection TEXT NOT NULL,
				doc_date   DATE,
				country    TEXT NOT NULL DEFAULT '',
				sec_id     TEXT NOT NULL DEFAULT '',
				name       TEXT NOT NULL DEFAULT '',
				body       JSONB NOT NULL
			)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_lookup_idx ON %s (collection, country, sec_id, name, doc_date)`,
			strings.ReplaceAll(s.table, ".", "_"), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure document schema: %w", err)
		}
	}
	return nil
}

// Insert stores one document.
func (s *Store) Insert(ctx context.Context, doc contracts.Document) error {
	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("marshal document body: %w", err)
	}

	var date *time.Time
	if !doc.Date.IsZero() {
		d := contracts.Day(doc.Date)
		date = &d
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (collection, doc_date, country, sec_id, name, body)
		VALUES ($1, $2, $3, $4, $5, $6)`, s.table)
	if _, err := s.db.Exec(ctx, query, doc.Collection, date, doc.Country, doc.SecID, doc.Name, body); err != nil {
		return contracts.Backend("insert document", err)
	}
	return nil
}

// Find returns documents matching filter ordered by date.
func (s *Store) Find(ctx context.Context, filter contracts.DocumentFilter, order contracts.SortOrder) (contracts.Cursor, error) {
	query, args := s.buildFind(filter, order)

	s.logger.WithFields(map[string]interface{}{
		"collection": filter.Collection,
		"country":    filter.Country,
		"sec_id":     filter.SecID,
		"name":       filter.Name,
	}).Debug("Finding documents")

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, contracts.Backend("find documents", err)
	}
	return &cursor{rows: rows}, nil
}

func (s *Store) buildFind(f contracts.DocumentFilter, order contracts.SortOrder) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	add("collection = $%d", f.Collection)
	if f.Country != "" {
		add("country = $%d", f.Country)
	}
	if f.SecID != "" {
		add("sec_id = $%d", f.SecID)
	}
	if f.Name != "" {
		add("name = $%d", f.Name)
	}
	if f.DateFrom != nil {
		add("doc_date >= $%d", contracts.Day(*f.DateFrom))
	}
	if f.DateTo != nil {
		add("doc_date <= $%d", contracts.Day(*f.DateTo))
	}

	dir := "ASC"
	if order == contracts.Descending {
		dir = "DESC"
	}

	query := fmt.Sprintf(`SELECT collection, doc_date, country, sec_id, name, body FROM %s WHERE %s ORDER BY doc_date %s, id %s`,
		s.table, strings.Join(where, " AND "), dir, dir)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

type cursor struct {
	rows pgx.Rows
	doc  contracts.Document
	err  error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}

	var (
		date *time.Time
		body []byte
		doc  contracts.Document
	)
	if err := c.rows.Scan(&doc.Collection, &date, &doc.Country, &doc.SecID, &doc.Name, &body); err != nil {
		c.err = fmt.Errorf("scan document: %w", err)
		return false
	}
	if date != nil {
		doc.Date = contracts.Day(*date)
	}
	if err := json.Unmarshal(body, &doc.Fields); err != nil {
		c.err = fmt.Errorf("decode document body: %w", err)
		return false
	}
	c.doc = doc
	return true
}

func (c *cursor) Document() contracts.Document { return c.doc }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close() { c.rows.Close() }
