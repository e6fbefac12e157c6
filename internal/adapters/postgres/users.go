package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type UserRepository struct {
	db DB
}

const userCols = "version, doc, password_hash"

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var version int64
	var hash string
	if err := decode(row, &u, &version, &hash); err != nil {
		return domain.User{}, err
	}
	u.Version = version
	u.PasswordHash = hash
	return u, nil
}

func userColumns(u domain.User) ([]string, []any) {
	return []string{"username", "email", "password_hash", "display_name", "role", "is_active", "created_at"},
		[]any{u.Username, u.Email, u.PasswordHash, u.DisplayName, string(u.Role), u.IsActive, u.CreatedAt}
}

func (r *UserRepository) getBy(ctx context.Context, cond, val string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userCols+" FROM users WHERE "+cond, val))
	if err != nil {
		return domain.User{}, failure("load user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "LOWER(username) = LOWER($1)", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	cols, vals := userColumns(u)
	return insert(ctx, r.db, "users", append([]string{"id"}, cols...), append([]any{u.ID}, vals...), u, u.Version)
}

func (r *UserRepository) Update(ctx context.Context, u domain.User) (domain.User, error) {
	cols, vals := userColumns(u)
	if err := update(ctx, r.db, "users", u.ID, cols, vals, u, u.Version); err != nil {
		return domain.User{}, err
	}
	u.Version++
	return u, nil
}

func userWhere(f ports.UserFilter) where {
	var w where
	if f.Role != "" {
		w.add("role = " + w.arg(string(f.Role)))
	}
	if f.ActiveOnly {
		w.add("is_active")
	}
	w.contains(f.Text, "username", "email", "display_name")
	return w
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter, q ports.ListQuery) ([]domain.User, error) {
	sort := q.Normalize().Sort
	if sort == ports.SortPopular {
		sort = ports.SortNewest
	}
	return selectDocs(ctx, r.db, "users", userCols, userWhere(f), orderBy(sort, "username"), q, scanUser)
}

func (r *UserRepository) Count(ctx context.Context, f ports.UserFilter) (int, error) {
	return count(ctx, r.db, "users", userWhere(f))
}
