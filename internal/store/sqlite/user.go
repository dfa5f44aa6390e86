package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/explainer-ai/backend/internal/model/user"
)

// CreateUser inserts a new identity row and fills in its ID.
// Returns ErrConflict if the email is already registered.
func (d *DB) CreateUser(ctx context.Context, create *user.Account) (*user.Account, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password, created_at) VALUES (?, ?, ?, ?)`,
		create.Username, create.Email, create.PasswordHash, formatTime(create.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read user id: %w", err)
	}
	create.ID = user.ID(id)
	return create, nil
}

// FindUserByEmail returns the account registered under email.
func (d *DB) FindUserByEmail(ctx context.Context, email string) (*user.Account, error) {
	return d.findUser(ctx, `WHERE email = ?`, email)
}

// GetUser returns the account with the given id.
func (d *DB) GetUser(ctx context.Context, id user.ID) (*user.Account, error) {
	return d.findUser(ctx, `WHERE id = ?`, int64(id))
}

// CountUsers returns the number of registered identities.
func (d *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (d *DB) findUser(ctx context.Context, where string, arg any) (*user.Account, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, username, email, password, created_at FROM users `+where, arg)

	var (
		account   user.Account
		id        int64
		createdAt string
	)
	err := row.Scan(&id, &account.Username, &account.Email, &account.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	account.ID = user.ID(id)
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &account, nil
}
