package books

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"library-backend/internal/platform/db"
	"library-backend/internal/platform/logger"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	store *Store
	clock Clock
	log   *zap.Logger
}

func NewService(store *Store, log *zap.Logger) *Service {
	return &Service{store: store, clock: realClock{}, log: log}
}

func (s *Service) CreateBook(ctx context.Context, in CreateBookRequest) (BookResponse, error) {
	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		return BookResponse{}, ErrInvalid("title and author are required")
	}
	if in.Quantity == nil || *in.Quantity < 0 {
		return BookResponse{}, ErrInvalid("quantity must be >= 0")
	}

	now := s.clock.Now()
	b := &Book{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		Title:     title,
		Author:    author,
		Quantity:  *in.Quantity,
		Available: *in.Quantity,
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		if db.IsDuplicateKey(err) {
			return BookResponse{}, ErrConflict("book already exists")
		}
		return BookResponse{}, err
	}
	logger.FromContext(ctx, s.log).Info("book created", zap.String("book_id", b.ID), zap.Int("quantity", b.Quantity))
	return toResponse(b), nil
}

func (s *Service) GetBook(ctx context.Context, id string) (BookResponse, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return BookResponse{}, err
	}
	return toResponse(b), nil
}

func (s *Service) ListBooks(ctx context.Context, p Page) (ListBooksResult, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return ListBooksResult{}, err
	}
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	next := p.Offset + p.Limit
	if p.Limit <= 0 || next >= int(total) {
		next = 0
	} // 0=終端
	return ListBooksResult{Items: out, Total: total, NextOffset: next}, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, id string, in UpdateQuantityRequest) (BookResponse, error) {
	if in.Quantity == nil || *in.Quantity < 0 {
		return BookResponse{}, ErrInvalid("quantity must be >= 0")
	}
	if err := s.store.SetQuantity(ctx, id, *in.Quantity); err != nil {
		return BookResponse{}, err
	}
	logger.FromContext(ctx, s.log).Info("book quantity updated", zap.String("book_id", id), zap.Int("quantity", *in.Quantity))
	return s.GetBook(ctx, id)
}
