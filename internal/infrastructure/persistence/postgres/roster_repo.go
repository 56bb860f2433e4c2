package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
)

// Querier is the part of pgxpool.Pool / pgx.Conn the roster needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RosterTable describes where student names live.
type RosterTable struct {
	// Table may be schema-qualified ("school.students").
	Table       string
	NameColumn  string
	ClassColumn string
}

// DefaultRosterTable returns the default roster layout.
func DefaultRosterTable() RosterTable {
	return RosterTable{
		Table:       "students",
		NameColumn:  "full_name",
		ClassColumn: "class_name",
	}
}

// RosterRepository reads student names of a class.
type RosterRepository struct {
	db    Querier
	query string
}

// NewRosterRepository builds the roster query once; identifiers are quoted
// with pgx.Identifier so table and column names cannot inject SQL.
func NewRosterRepository(db Querier, table RosterTable) *RosterRepository {
	def := DefaultRosterTable()
	if table.Table == "" {
		table.Table = def.Table
	}
	if table.NameColumn == "" {
		table.NameColumn = def.NameColumn
	}
	if table.ClassColumn == "" {
		table.ClassColumn = def.ClassColumn
	}

	name := pgx.Identifier{table.NameColumn}.Sanitize()
	class := pgx.Identifier{table.ClassColumn}.Sanitize()
	from := pgx.Identifier(strings.Split(table.Table, ".")).Sanitize()

	return &RosterRepository{
		db: db,
		query: fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s = $1 ORDER BY %s",
			name, from, class, name,
		),
	}
}

// Query returns the SQL text used by FetchNames.
func (r *RosterRepository) Query() string {
	return r.query
}

// FetchNames returns the trimmed, non-empty student names of className
// in roster order.
func (r *RosterRepository) FetchNames(ctx context.Context, className string) ([]string, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return nil, shared.ErrRosterClassEmpty
	}

	rows, err := r.db.Query(ctx, r.query, className)
	if err != nil {
		return nil, shared.WrapError("roster", "FetchNames", shared.ErrServiceUnavailable, "query roster", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, shared.WrapError("roster", "FetchNames", shared.ErrServiceUnavailable, "scan roster", err)
	}

	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}
