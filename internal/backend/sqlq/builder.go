// Package sqlq renders backend-neutral queries into SQL for a placeholder dialect.
package sqlq

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/refdata/internal/contracts"
)

// Dialect selects the bind placeholder style.
type Dialect int

const (
	// Dollar renders $1, $2, ... (PostgreSQL).
	Dollar Dialect = iota
	// Question renders ? (ClickHouse, MySQL).
	Question
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether name is a plain (optionally schema-qualified) identifier.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

type builder struct {
	dialect Dialect
	args    []interface{}
}

func (b *builder) bind(v interface{}) string {
	b.args = append(b.args, v)
	if b.dialect == Dollar {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

// Build renders q. Identifiers are validated rather than quoted, so column
// names keep the backend's case folding.
func Build(q contracts.Query, d Dialect) (string, []interface{}, error) {
	const op = "build query"
	if !ValidIdentifier(q.Table) {
		return "", nil, contracts.Configuration(op, "invalid table name %q", q.Table)
	}

	cols := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if !ValidIdentifier(c) {
				return "", nil, contracts.Configuration(op, "invalid column name %q", c)
			}
		}
		cols = strings.Join(q.Columns, ", ")
	}

	b := &builder{dialect: d}
	var where []string

	if q.In != nil {
		if !ValidIdentifier(q.In.Column) {
			return "", nil, contracts.Configuration(op, "invalid column name %q", q.In.Column)
		}
		if len(q.In.Values) == 0 {
			where = append(where, "1 = 0")
		} else {
			marks := make([]string, len(q.In.Values))
			for i, v := range q.In.Values {
				marks[i] = b.bind(v)
			}
			where = append(where, fmt.Sprintf("%s IN (%s)", q.In.Column, strings.Join(marks, ", ")))
		}
	}

	if q.Range != nil {
		if !ValidIdentifier(q.Range.Column) {
			return "", nil, contracts.Configuration(op, "invalid column name %q", q.Range.Column)
		}
		if q.Range.From != nil {
			where = append(where, fmt.Sprintf("%s >= %s", q.Range.Column, b.bind(q.Range.From)))
		}
		if q.Range.To != nil {
			where = append(where, fmt.Sprintf("%s <= %s", q.Range.Column, b.bind(q.Range.To)))
		}
	}

	for _, eq := range q.Equals {
		if !ValidIdentifier(eq.Column) {
			return "", nil, contracts.Configuration(op, "invalid column name %q", eq.Column)
		}
		where = append(where, fmt.Sprintf("%s = %s", eq.Column, b.bind(eq.Value)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, q.Table)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if len(q.OrderBy) > 0 {
		order := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			col, dir := o, ""
			if f := strings.Fields(o); len(f) == 2 && (strings.EqualFold(f[1], "ASC") || strings.EqualFold(f[1], "DESC")) {
				col, dir = f[0], " "+strings.ToUpper(f[1])
			}
			if !ValidIdentifier(col) {
				return "", nil, contracts.Configuration(op, "invalid order column %q", o)
			}
			order[i] = col + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}

	return sb.String(), b.args, nil
}
