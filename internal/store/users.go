package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

const userColumns = `id, email, name, password_hash, created_at, updated_at`

func scanUser(row scanner) (*model.User, error) {
	var (
		u    model.User
		name sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &u.PasswordHash, ts(&u.CreatedAt), ts(&u.UpdatedAt)); err != nil {
		return nil, err
	}
	u.Name = name.String
	return &u, nil
}

// CreateUser inserts u. Emails are compared exactly, so a second account with
// the same email fails with ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	defer s.observe(ctx, "create_user", time.Now())

	now := s.timestamp()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		u.Email, nullString(u.Name), u.PasswordHash, dbTime(now), dbTime(now))

	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", u.Email, classify(err))
	}
	return created, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	defer s.observe(ctx, "get_user", time.Now())

	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, classify(err))
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer s.observe(ctx, "get_user_by_email", time.Now())

	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", email, classify(err))
	}
	return u, nil
}

// UpdateUser applies mutate to the stored user inside a transaction. Only
// the name and password hash are written back.
func (s *Store) UpdateUser(ctx context.Context, id int64, mutate func(*model.User) error) (*model.User, error) {
	defer s.observe(ctx, "update_user", time.Now())

	var updated *model.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if err != nil {
			return classify(err)
		}
		if err := mutate(current); err != nil {
			return err
		}

		updated, err = scanUser(tx.QueryRowContext(ctx, `
			UPDATE users SET name = ?, password_hash = ?, updated_at = MAX(updated_at, ?)
			WHERE id = ?
			RETURNING `+userColumns,
			nullString(current.Name), current.PasswordHash, dbTime(s.timestamp()), id))
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("updating user %d: %w", id, err)
	}
	return updated, nil
}
