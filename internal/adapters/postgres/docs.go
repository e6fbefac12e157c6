package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// where builds numbered placeholders as conditions are added.
type where struct {
	conds []string
	args  []any
}

func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(cond string) { w.conds = append(w.conds, cond) }

func (w *where) contains(text string, cols ...string) {
	if text == "" {
		return
	}
	p := w.arg("%" + likeEscaper.Replace(text) + "%")
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " ILIKE " + p
	}
	w.add("(" + strings.Join(parts, " OR ") + ")")
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderBy(sort ports.SortOrder, titleCol string) string {
	switch sort {
	case ports.SortOldest:
		return " ORDER BY created_at ASC, id ASC"
	case ports.SortPopular:
		return " ORDER BY play_count DESC, created_at DESC, id ASC"
	case ports.SortTitle:
		return " ORDER BY LOWER(" + titleCol + ") ASC, id ASC"
	default:
		return " ORDER BY created_at DESC, id ASC"
	}
}

// decode scans version and doc, then any extra columns.
func decode[T any](row pgx.Row, v *T, version *int64, extra ...any) error {
	var doc []byte
	if err := row.Scan(append([]any{version, &doc}, extra...)...); err != nil {
		return err
	}
	return json.Unmarshal(doc, v)
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to encode document: %w", err)
	}
	return b, nil
}

func insert(ctx context.Context, db DB, table string, cols []string, vals []any, doc any, version int64) error {
	b, err := encode(doc)
	if err != nil {
		return err
	}
	cols = append(cols, "version", "doc")
	vals = append(vals, version, b)
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	if _, err := db.Exec(ctx, q, vals...); err != nil {
		return failure("insert "+table, err)
	}
	return nil
}

// update is a compare-and-swap on version. A miss is told apart as
// NotFound or Conflict with a second lookup.
func update(ctx context.Context, db DB, table, id string, cols []string, vals []any, doc any, version int64) error {
	b, err := encode(doc)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(cols)+2)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	n := len(cols)
	sets = append(sets, fmt.Sprintf("version = $%d", n+1), fmt.Sprintf("doc = $%d", n+2))
	vals = append(vals, version+1, b, id, version)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d AND version = $%d", table, strings.Join(sets, ", "), n+3, n+4)
	tag, err := db.Exec(ctx, q, vals...)
	if err != nil {
		return failure("update "+table, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return failure("update "+table, err)
	}
	if !exists {
		return fmt.Errorf("postgres: update %s: %w", table, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres: update %s: %w", table, domain.ErrConflict)
}

func remove(ctx context.Context, db DB, table, id string) error {
	tag, err := db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return failure("delete "+table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete %s: %w", table, domain.ErrNotFound)
	}
	return nil
}

func selectDocs[T any](ctx context.Context, db DB, table, cols string, w where, order string, q ports.ListQuery, scan func(pgx.Row) (T, error)) ([]T, error) {
	q = q.Normalize()
	query := "SELECT " + cols + " FROM " + table + w.String() + order
	query += " LIMIT " + w.arg(q.Limit) + " OFFSET " + w.arg(q.Offset)
	rows, err := db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, failure("list "+table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, failure("list "+table, err)
	}
	return out, nil
}

func count(ctx context.Context, db DB, table string, w where) (int, error) {
	var n int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&n); err != nil {
		return 0, failure("count "+table, err)
	}
	return n, nil
}
