package sqlite

import (
	"context"
	"database/sql"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// UserRepository keeps the password hash in its own column because the JSON
// document never carries it.
type UserRepository struct {
	db *sql.DB
}

const userCols = "version, doc, password_hash"

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var version int64
	var hash string
	if err := decode(s, &u, &version, &hash); err != nil {
		return domain.User{}, err
	}
	u.Version = version
	u.PasswordHash = hash
	return u, nil
}

func userColumns(u domain.User) ([]string, []any) {
	return []string{"username", "email", "password_hash", "display_name", "role", "is_active", "created_at"},
		[]any{u.Username, u.Email, u.PasswordHash, u.DisplayName, string(u.Role), boolInt(u.IsActive), unixNano(u.CreatedAt)}
}

func (r *UserRepository) getBy(ctx context.Context, col, val string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE "+col+" = ?", val)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, failure("load user", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
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
		w.add("role = ?", string(f.Role))
	}
	if f.ActiveOnly {
		w.add("is_active = 1")
	}
	w.contains(f.Text, "username", "email", "display_name")
	return w
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter, q ports.ListQuery) ([]domain.User, error) {
	sort := q.Normalize().Sort
	if sort == ports.SortPopular {
		// users have no play count
		sort = ports.SortNewest
	}
	return selectDocs(ctx, r.db, "users", userWhere(f), orderBy(sort, "username"), q, userCols, scanUser)
}

func (r *UserRepository) Count(ctx context.Context, f ports.UserFilter) (int, error) {
	return count(ctx, r.db, "users", userWhere(f))
}
