package records

// postgres.go reads records from a student information database.
//
// The query must return three columns per line, in this order:
//
//	key    text  -- groups lines into one record (usually the username)
//	field  text  -- declared or stripped header name
//	value  text  -- NULL is skipped
//
// Lines for the same key do not need to be adjacent; records come out in
// the order their key is first seen.

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
)

// DBTX is the interface for database reads.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Entry is one (key, field, value) line of a long-format query.
type Entry struct {
	Key   string
	Field string
	Value pgtype.Text
}

// QueryEntries runs sql and collects its rows as entries.
func QueryEntries(ctx context.Context, db DBTX, sql string, args ...interface{}) ([]Entry, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Entry])
	if err != nil {
		return nil, fmt.Errorf("collect entries: %w", err)
	}
	return entries, nil
}

// Group folds entries into one record per key. Static fields keep the last
// value seen; Dynamic fields collect every value in query order.
func Group(entries []Entry, schema *export.HeaderSchema) ([]Record, error) {
	var order []string
	byKey := make(map[string]Record)

	for i, e := range entries {
		field, ok := schema.Lookup(e.Field)
		if !ok {
			return nil, fmt.Errorf("entry %d (key %q): %w", i+1, e.Key, &export.UnknownFieldError{Name: e.Field})
		}

		rec, seen := byKey[e.Key]
		if !seen {
			rec = make(Record)
			byKey[e.Key] = rec
			order = append(order, e.Key)
		}

		if !e.Value.Valid {
			continue
		}

		if field.Kind == export.Static {
			rec[field.Declared] = export.Scalar(e.Value.String)
			continue
		}
		seq, _ := rec[field.Declared].(export.Sequence)
		rec[field.Declared] = append(seq, e.Value.String)
	}

	out := make([]Record, len(order))
	for i, key := range order {
		out[i] = byKey[key]
	}
	return out, nil
}
