package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/db"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: sqlx.NewDb(conn, "mysql")} }

const selectBook = `SELECT id, title, author, quantity, available, created_at FROM books`

// ---- 在庫操作（呼び出し側の Tx 内で使う） ----

// Reserve は available を1減らす。available > 0 の条件付きUPDATEなので、
// 同じ本への同時申請が在庫0を下回ることはない。
func (s *Store) Reserve(ctx context.Context, q db.DBTX, bookID string) error {
	const stmt = `UPDATE books SET available = available - 1 WHERE id = ? AND available > 0`
	res, err := q.ExecContext(ctx, stmt, bookID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 1 {
		return nil
	}

	// 0行: 存在しないのか在庫切れなのかを切り分ける
	if _, err := s.GetTx(ctx, q, bookID); err != nil {
		return err
	}
	return ErrNoCopiesAvailable
}

// Release は available を1戻す。quantity を超えることはない。
func (s *Store) Release(ctx context.Context, q db.DBTX, bookID string) error {
	const stmt = `UPDATE books SET available = available + 1 WHERE id = ? AND available < quantity`
	res, err := q.ExecContext(ctx, stmt, bookID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 1 {
		return nil
	}

	if _, err := s.GetTx(ctx, q, bookID); err != nil {
		return err
	}
	return ErrAvailableOverflow
}

func (s *Store) GetTx(ctx context.Context, q db.DBTX, bookID string) (*Book, error) {
	var b Book
	err := q.QueryRowContext(ctx, selectBook+` WHERE id = ?`, bookID).Scan(
		&b.ID, &b.Title, &b.Author, &b.Quantity, &b.Available, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ---- カタログ ----

func (s *Store) GetByID(ctx context.Context, id string) (*Book, error) {
	var b Book
	if err := s.db.GetContext(ctx, &b, selectBook+` WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) Insert(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books (id, title, author, quantity, available, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, b.ID, b.Title, b.Author, b.Quantity, b.Available, b.CreatedAt)
	return err
}

func (s *Store) List(ctx context.Context, p Page) ([]Book, int64, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	items := []Book{}
	if err := s.db.SelectContext(ctx, &items, selectBook+` ORDER BY title ASC, id ASC LIMIT ? OFFSET ?`, p.Limit, p.Offset); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM books`); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SetQuantity は総冊数を変更し、available も同じ差分だけ動かす。
// 貸出中の冊数 (quantity - available) を下回る変更は拒否する。
// MySQL の SET は左から評価されるので available を先に更新すること。
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) error {
	const stmt = `
	UPDATE books
	SET available = available + (? - quantity),
	    quantity = ?
	WHERE id = ?
	AND quantity - available <= ?`
	return db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, stmt, quantity, quantity, id, quantity)
		if err != nil {
			return err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if aff == 1 {
			return nil
		}
		b, err := s.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		return ErrConflict(fmt.Sprintf("quantity %d is below the %d copies on hold", quantity, b.Held()))
	})
}
