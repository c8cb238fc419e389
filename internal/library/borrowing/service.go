package borrowing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/logger"
)

// -------------- Collaborators --------------

// TxRunner: 競合時の再試行込みでトランザクションを回す（db.Runner）
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error
}

// Inventory: 本の在庫を1冊単位で押さえる・戻す（books.Store）
type Inventory interface {
	Reserve(ctx context.Context, q db.DBTX, bookID string) error
	Release(ctx context.Context, q db.DBTX, bookID string) error
}

// Repository: 申請の永続化（*Store）
type Repository interface {
	RequestCounter
	Insert(ctx context.Context, q db.DBTX, r *Request) error
	GetForUpdate(ctx context.Context, q db.DBTX, id string) (*Request, error)
	UpdateStatus(ctx context.Context, q db.DBTX, r *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, f Filter, p Page) ([]Request, int64, error)
	ListWithLines(ctx context.Context, f Filter) ([]Request, error)
}

// UserFinder: 承認者の存在確認だけに使う（auth.Store）
type UserFinder interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Service --------------

type Service struct {
	tx        TxRunner
	repo      Repository
	inventory Inventory
	users     UserFinder
	quota     *Quota
	clock     Clock
	id        IDGen
	log       *zap.Logger
}

type Options struct {
	MaxBooksPerRequest  int
	MonthlyRequestLimit int
}

func NewService(tx TxRunner, repo Repository, inv Inventory, users UserFinder, opt Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tx:        tx,
		repo:      repo,
		inventory: inv,
		users:     users,
		quota:     NewQuota(opt.MaxBooksPerRequest, opt.MonthlyRequestLimit, repo),
		clock:     realClock{},
		id:        ulidGen{},
		log:       log,
	}
}

// Submit は申請を作り、各本の在庫を1冊ずつ押さえる。
// 在庫の減算と申請の INSERT は1つの Tx で行い、途中で失敗したら全部戻す。
func (s *Service) Submit(ctx context.Context, requestorID string, bookIDs []string) (*Request, error) {
	requestorID = strings.TrimSpace(requestorID)
	if requestorID == "" {
		return nil, ErrInvalid("requestor id required")
	}
	ids := make([]string, 0, len(bookIDs))
	for _, id := range bookIDs {
		ids = append(ids, strings.TrimSpace(id))
	}
	if err := s.quota.CheckBooks(ids); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reqID := s.id.NewULID(now)

	var created *Request
	err := s.tx.InTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := s.quota.CheckMonthly(ctx, tx, requestorID, now); err != nil {
			return err
		}

		r := &Request{
			ID:          reqID,
			RequestorID: requestorID,
			RequestDate: now,
			Status:      StatusWaiting,
			Lines:       make([]Line, 0, len(ids)),
		}
		for i, bookID := range ids {
			if err := s.inventory.Reserve(ctx, tx, bookID); err != nil {
				return mapInventoryErr(err, bookID)
			}
			r.Lines = append(r.Lines, Line{RequestID: reqID, BookID: bookID, LineNo: i + 1})
		}

		if err := s.repo.Insert(ctx, tx, r); err != nil {
			return fmt.Errorf("insert request: %w", err)
		}
		// タイトル付きで読み直す（GET と同じ形で返す）
		saved, err := s.repo.GetForUpdate(ctx, tx, reqID)
		if err != nil {
			return fmt.Errorf("reload request: %w", err)
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("borrowing request submitted",
		zap.String("request_id", created.ID),
		zap.String("requestor_id", requestorID),
		zap.Strings("book_ids", ids),
	)
	return created, nil
}

// Approve: 在庫はそのまま（申請時に押さえた分が貸出になる）
func (s *Service) Approve(ctx context.Context, approverID, requestID string) (*Request, error) {
	return s.decide(ctx, approverID, requestID, StatusApproved)
}

// Reject: 状態更新と全行の在庫戻しを同じ Tx で行う
func (s *Service) Reject(ctx context.Context, approverID, requestID string) (*Request, error) {
	return s.decide(ctx, approverID, requestID, StatusRejected)
}

func (s *Service) decide(ctx context.Context, approverID, requestID string, to Status) (*Request, error) {
	approverID = strings.TrimSpace(approverID)
	if approverID == "" {
		return nil, ErrInvalid("approver id required")
	}

	var decided *Request
	err := s.tx.InTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r, err := s.repo.GetForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		// 申請が見つかってから承認者を確認する
		ok, err := s.users.Exists(ctx, approverID)
		if err != nil {
			return fmt.Errorf("lookup approver: %w", err)
		}
		if !ok {
			return ErrUserNotFound
		}

		switch to {
		case StatusApproved:
			err = r.Approve(approverID)
		case StatusRejected:
			err = r.Reject(approverID)
		}
		if err != nil {
			return err
		}

		// WHERE status = Waiting の条件付きUPDATE。並行した承認/却下はここで負ける。
		if err := s.repo.UpdateStatus(ctx, tx, r); err != nil {
			return err
		}

		if to == StatusRejected {
			for _, l := range r.Lines {
				if err := s.inventory.Release(ctx, tx, l.BookID); err != nil {
					return fmt.Errorf("release book %s: %w", l.BookID, err)
				}
			}
		}
		decided = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info("borrowing request decided",
		zap.String("request_id", decided.ID),
		zap.String("status", decided.Status.String()),
		zap.String("approver_id", approverID),
	)
	return decided, nil
}

// Get: staff 以外は自分の申請しか見えない（他人のものは存在しない扱い）
func (s *Service) Get(ctx context.Context, viewerID string, staff bool, id string) (*Request, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && r.RequestorID != viewerID {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

// List: 絞り込み後の総件数とページ情報を返す
func (s *Service) List(ctx context.Context, f Filter, p Page) (PagedResult, error) {
	if p.PageSize != 0 || p.PageIndex != 0 {
		if p.PageIndex < 1 || p.PageSize < 1 {
			return PagedResult{}, ErrInvalid("pageIndex and pageSize must be >= 1")
		}
	}
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return PagedResult{}, fmt.Errorf("list requests: %w", err)
	}
	return newPagedResult(items, total, p), nil
}

func (s *Service) ListByRequestor(ctx context.Context, requestorID string, st *Status, p Page) (PagedResult, error) {
	if strings.TrimSpace(requestorID) == "" {
		return PagedResult{}, ErrInvalid("requestor id required")
	}
	return s.List(ctx, Filter{RequestorID: &requestorID, Status: st}, p)
}

// Export: CSV 出力用。行（本）まで読み込む。
func (s *Service) Export(ctx context.Context, f Filter) ([]Request, error) {
	rs, err := s.repo.ListWithLines(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("export requests: %w", err)
	}
	return rs, nil
}

func mapInventoryErr(err error, bookID string) error {
	switch {
	case errors.Is(err, books.ErrBookNotFound):
		return newErr(CodeBookNotFound, "book %s not found", bookID)
	case errors.Is(err, books.ErrNoCopiesAvailable):
		return newErr(CodeBookUnavailable, "book %s is not available", bookID)
	default:
		return fmt.Errorf("reserve book %s: %w", bookID, err)
	}
}
