package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/models"
)

const pgUniqueViolationCode = "23505"

// DB is satisfied by *pgxpool.Pool and by pgx transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

/*
PostgresStore implements Store with dynamic per-table SQL. Table and column
names are never taken from callers directly: both must appear in the
models table registry, so identifier interpolation below is over a closed
set of known-safe names.
*/
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FetchByID(ctx context.Context, table, id string) (*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT * FROM %s WHERE id=$1`, ident(spec.Name)), id)
	if err != nil {
		return nil, err
	}
	return scanOne(rows)
}

func (s *PostgresStore) ConditionalUpdate(ctx context.Context, table, id string, expectedVersion int64, patch map[string]any) (*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}

	cols, err := orderedColumns(spec, patch)
	if err != nil {
		return nil, err
	}

	var (
		set  []string
		args []any
	)
	for i, col := range cols {
		set = append(set, fmt.Sprintf("%s=$%d", ident(col), i+1))
		args = append(args, patch[col])
	}
	set = append(set, "version=version+1", "updated_at=NOW()")
	args = append(args, id, expectedVersion)

	sql := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id=$%d AND version=$%d RETURNING *`,
		ident(spec.Name), strings.Join(set, ","), len(args)-1, len(args),
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	rec, err := scanOne(rows)
	if errors.Is(err, ErrNotFound) {
		// The version check failed or the row is gone; the caller decides
		// which story to tell using its own pre-read.
		return nil, ErrNoRowsAffected
	}
	return rec, err
}

func (s *PostgresStore) Insert(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}

	cols, err := orderedColumns(spec, fields)
	if err != nil {
		return nil, err
	}

	names := []string{"id"}
	placeholders := []string{"$1"}
	args := []any{id}
	for i, col := range cols {
		names = append(names, ident(col))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, fields[col])
	}
	names = append(names, "version", "created_at", "updated_at")
	placeholders = append(placeholders, "1", "NOW()", "NOW()")

	sql := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING *`,
		ident(spec.Name), strings.Join(names, ","), strings.Join(placeholders, ","),
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUniqueViolation
		}
		return nil, err
	}
	rec, err := scanOne(rows)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrUniqueViolation
	}
	return rec, err
}

func (s *PostgresStore) ConditionalDelete(ctx context.Context, table, id string, expectedVersion int64) error {
	spec, ok := models.LookupTable(table)
	if !ok {
		return ErrUnknownTable
	}
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id=$1 AND version=$2`, ident(spec.Name)),
		id, expectedVersion,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) FindByUniqueFields(ctx context.Context, table string, fields map[string]any) ([]*Record, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, ErrUnknownTable
	}
	cols, err := orderedColumns(spec, fields)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for i, col := range cols {
		conds = append(conds, fmt.Sprintf("%s=$%d", ident(col), i+1))
		args = append(args, fields[col])
	}

	sql := fmt.Sprintf(`SELECT * FROM %s WHERE %s`, ident(spec.Name), strings.Join(conds, " OR "))
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, scanErr := recordFromRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

/* ───────────── helpers ───────────── */

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// orderedColumns validates the patch against the table's column whitelist
// and returns the keys in deterministic order.
func orderedColumns(spec models.TableSpec, patch map[string]any) ([]string, error) {
	cols := make([]string, 0, len(patch))
	for col := range patch {
		if !spec.UpdatableColumn(col) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, spec.Name, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func scanOne(rows pgx.Rows) (*Record, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	rec, err := recordFromRow(rows)
	if err != nil {
		return nil, err
	}
	return rec, rows.Err()
}

// recordFromRow maps the current row generically: bookkeeping columns land
// on the Record itself, everything else goes into Fields.
func recordFromRow(rows pgx.Rows) (*Record, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}

	rec := &Record{Fields: make(map[string]any)}
	for i, fd := range rows.FieldDescriptions() {
		name := string(fd.Name)
		v := values[i]
		switch name {
		case "id":
			rec.ID = stringID(v)
		case "version":
			rec.Version = asInt64(v)
		case "created_at":
			if t, ok := v.(time.Time); ok {
				rec.CreatedAt = t
			}
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				rec.UpdatedAt = t
			}
		default:
			rec.Fields[name] = v
		}
	}
	return rec, nil
}

func stringID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case [16]byte:
		return uuid.UUID(id).String()
	default:
		return fmt.Sprintf("%v", id)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}
