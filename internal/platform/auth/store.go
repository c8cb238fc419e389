package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleSuperUser = "superuser"
)

type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectAccount = `
SELECT id, username, password_hash, role, is_disabled, created_at
FROM users
`

// 見つからない場合は (nil, nil)
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	return s.getOne(ctx, selectAccount+`WHERE id = ? LIMIT 1`, id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return s.getOne(ctx, selectAccount+`WHERE username = ? LIMIT 1`, username)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*Account, error) {
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Role,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsDisabled = isDisabledInt != 0
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO users (id, username, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, 0, ?)
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.Username, a.PasswordHash, a.Role, a.CreatedAt)
	return err
}

// Exists: 承認者の存在確認用
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE id = ? AND is_disabled = 0)`
	var ok bool
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
