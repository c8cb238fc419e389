package borrowing

import (
	"context"
	"time"

	"library-backend/internal/platform/db"
)

const (
	DefaultMaxBooksPerRequest  = 5
	DefaultMonthlyRequestLimit = 3
)

// RequestCounter: 期間 [from, to) に作られた、却下以外の申請数
type RequestCounter interface {
	CountActiveInPeriod(ctx context.Context, q db.DBTX, requestorID string, from, to time.Time) (int, error)
}

// Quota は1申請あたりの冊数と月あたりの申請数を制限する。
type Quota struct {
	MaxBooks     int
	MonthlyLimit int
	counter      RequestCounter
}

func NewQuota(maxBooks, monthlyLimit int, counter RequestCounter) *Quota {
	if maxBooks <= 0 {
		maxBooks = DefaultMaxBooksPerRequest
	}
	if monthlyLimit <= 0 {
		monthlyLimit = DefaultMonthlyRequestLimit
	}
	return &Quota{MaxBooks: maxBooks, MonthlyLimit: monthlyLimit, counter: counter}
}

// CheckBooks: 空 → 冊数超過 → 重複 の順で判定。DBには触れない。
func (q *Quota) CheckBooks(bookIDs []string) error {
	if len(bookIDs) == 0 {
		return ErrEmptyRequest
	}
	if len(bookIDs) > q.MaxBooks {
		return newErr(CodeTooManyBooks, "at most %d books per request, got %d", q.MaxBooks, len(bookIDs))
	}
	seen := make(map[string]struct{}, len(bookIDs))
	for _, id := range bookIDs {
		if id == "" {
			return ErrInvalid("book id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return newErr(CodeDuplicateBook, "book %s requested more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// CheckMonthly: now が属する暦月の申請数が上限に達していればエラー
func (q *Quota) CheckMonthly(ctx context.Context, tx db.DBTX, requestorID string, now time.Time) error {
	from, to := MonthWindow(now)
	n, err := q.counter.CountActiveInPeriod(ctx, tx, requestorID, from, to)
	if err != nil {
		return err
	}
	if n >= q.MonthlyLimit {
		return newErr(CodeMonthlyQuotaExceeded, "at most %d requests per month", q.MonthlyLimit)
	}
	return nil
}

// MonthWindow: 月初 00:00 から翌月初 00:00 まで（終端は含まない）。UTC 基準。
func MonthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
