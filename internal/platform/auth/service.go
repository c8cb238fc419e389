package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/platform/db"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("authentication failed")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidInput       = errors.New("username and password are required")
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (*Account, error)
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int
}

func NewService(store AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{
		store:  store,
		secret: secret,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		cost:   bcrypt.DefaultCost,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	acct, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", ErrInvalidCredentials
	}
	if acct.IsDisabled {
		return "", ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(acct)
}

// IssueToken: sub=ユーザーID, role=user|superuser
func (s *Service) IssueToken(acct *Account) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Register は常に一般ユーザーとして登録する。superuser はDBで直接付与する。
func (s *Service) Register(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	exists, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists != nil {
		return nil, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &Account{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         RoleUser,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, acct); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return acct, nil
}
