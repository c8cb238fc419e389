package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Txを開始して fn を実行。fn が nil を返せば COMMIT、エラーなら ROLLBACK。
func RunInTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// 読み取り専用Tx
func ReadOnly(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return RunInTx(ctx, db, &sql.TxOptions{ReadOnly: true}, fn)
}

// Runner は RunInTx をデッドロック等の競合時に限り再試行する。
// fn は再実行されるので、Tx 外に副作用を持たないこと。
type Runner struct {
	DB      *sql.DB
	Retries int
	Backoff time.Duration
	Log     *zap.Logger
}

func NewRunner(db *sql.DB, retries int, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{DB: db, Retries: retries, Backoff: 20 * time.Millisecond, Log: log}
}

func (r *Runner) InTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	// 初回 + 再試行 Retries 回
	attempts := 1
	if r.Retries > 0 {
		attempts += r.Retries
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = RunInTx(ctx, r.DB, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		r.Log.Warn("transaction conflict, retrying",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", attempts, err)
}
