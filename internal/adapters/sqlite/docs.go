package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type scanner interface {
	Scan(dest ...any) error
}

// decode reads the version and doc columns, in that order, into v.
// extra receives any columns selected after them.
func decode[T any](s scanner, v *T, version *int64, extra ...any) error {
	var doc string
	dest := append([]any{version, &doc}, extra...)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(doc), v)
}

// selectDocs runs a listing query and decodes every row with scan.
func selectDocs[T any](ctx context.Context, db *sql.DB, table string, w where, order string, q ports.ListQuery, cols string, scan func(scanner) (T, error)) ([]T, error) {
	q = q.Normalize()
	lim, largs := limitOffset(q)
	query := "SELECT " + cols + " FROM " + table + w.String() + order + lim
	rows, err := db.QueryContext(ctx, query, append(w.args, largs...)...)
	if err != nil {
		return nil, failure("list "+table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, failure("scan "+table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, failure("iterate "+table, err)
	}
	return out, nil
}

func count(ctx context.Context, db *sql.DB, table string, w where) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&n); err != nil {
		return 0, failure("count "+table, err)
	}
	return n, nil
}
