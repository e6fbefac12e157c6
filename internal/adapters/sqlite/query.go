package sqlite

import (
	"strings"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// contains matches text as a case-insensitive substring of any column.
func (w *where) contains(text string, cols ...string) {
	if text == "" {
		return
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = "LOWER(" + c + ") LIKE ? ESCAPE '\\'"
		args[i] = pattern
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// orderBy maps a sort order onto columns. titleCol is the column used for
// alphabetical sorting. rowid keeps ties in insertion order.
func orderBy(sort ports.SortOrder, titleCol string) string {
	switch sort {
	case ports.SortOldest:
		return " ORDER BY created_at ASC, rowid ASC"
	case ports.SortPopular:
		return " ORDER BY play_count DESC, created_at DESC, rowid ASC"
	case ports.SortTitle:
		return " ORDER BY " + titleCol + " COLLATE NOCASE ASC, rowid ASC"
	default:
		return " ORDER BY created_at DESC, rowid ASC"
	}
}

func limitOffset(q ports.ListQuery) (string, []any) {
	return " LIMIT ? OFFSET ?", []any{q.Limit, q.Offset}
}
