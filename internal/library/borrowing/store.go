package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql" // dialect登録
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/db"
)

const (
	tableRequests = "book_borrowing_requests"
	tableDetails  = "book_borrowing_request_details"
)

var requestCols = []any{"id", "requestor_id", "request_date", "status", "approver_id"}

type Store struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewStore(conn *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(conn, "mysql"), dialect: goqu.Dialect("mysql")}
}

// ---------- 書き込み系（Tx 内） ----------

func (s *Store) CountActiveInPeriod(ctx context.Context, q db.DBTX, requestorID string, from, to time.Time) (int, error) {
	const stmt = `
	SELECT COUNT(*) FROM book_borrowing_requests
	WHERE requestor_id = ?
	AND request_date >= ? AND request_date < ?
	AND status <> ?`
	var n int
	if err := q.QueryRowContext(ctx, stmt, requestorID, from, to, int(StatusRejected)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// Insert: 申請本体と明細をまとめて登録
func (s *Store) Insert(ctx context.Context, q db.DBTX, r *Request) error {
	const stmt = `
	INSERT INTO book_borrowing_requests (id, requestor_id, request_date, status, approver_id)
	VALUES (?, ?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, stmt, r.ID, r.RequestorID, r.RequestDate, int(r.Status), r.ApproverID); err != nil {
		return err
	}
	if len(r.Lines) == 0 {
		return nil
	}

	rows := make([]any, 0, len(r.Lines))
	for _, l := range r.Lines {
		rows = append(rows, goqu.Record{"request_id": r.ID, "book_id": l.BookID, "line_no": l.LineNo})
	}
	sqlStr, args, err := s.dialect.Insert(tableDetails).Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return fmt.Errorf("build detail insert: %w", err)
	}
	_, err = q.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetForUpdate: 行ロックを取ってから状態を読む。承認/却下の直列化用。
func (s *Store) GetForUpdate(ctx context.Context, q db.DBTX, id string) (*Request, error) {
	const stmt = `
	SELECT id, requestor_id, request_date, status, approver_id
	FROM book_borrowing_requests
	WHERE id = ?
	FOR UPDATE`
	var r Request
	err := q.QueryRowContext(ctx, stmt, id).Scan(&r.ID, &r.RequestorID, &r.RequestDate, &r.Status, &r.ApproverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	rs := []Request{r}
	if err := s.attachLines(ctx, q, rs); err != nil {
		return nil, err
	}
	return &rs[0], nil
}

// UpdateStatus: Waiting の行だけを更新する。一致0行なら既に決着済み。
func (s *Store) UpdateStatus(ctx context.Context, q db.DBTX, r *Request) error {
	const stmt = `
	UPDATE book_borrowing_requests
	SET status = ?, approver_id = ?
	WHERE id = ? AND status = ?`
	res, err := q.ExecContext(ctx, stmt, int(r.Status), r.ApproverID, r.ID, int(StatusWaiting))
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff != 1 {
		return ErrInvalidTransitionf("request %s is no longer waiting", r.ID)
	}
	return nil
}

// ---------- 参照系 ----------

// Get: 本体と明細を同じ読み取り専用 Tx で読む
func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	sqlStr, args, err := s.dialect.From(tableRequests).Prepared(true).
		Select(requestCols...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var out *Request
	err = db.ReadOnly(ctx, s.db.DB, func(ctx context.Context, tx db.DBTX) error {
		var r Request
		err := tx.QueryRowContext(ctx, sqlStr, args...).
			Scan(&r.ID, &r.RequestorID, &r.RequestDate, &r.Status, &r.ApproverID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return err
		}
		rs := []Request{r}
		if err := s.attachLines(ctx, tx, rs); err != nil {
			return err
		}
		out = &rs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List: 新しい順。PageSize==0 なら LIMIT なし。
func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Request, int64, error) {
	base := s.dialect.From(tableRequests).Prepared(true)
	if f.RequestorID != nil {
		base = base.Where(goqu.Ex{"requestor_id": *f.RequestorID})
	}
	if f.Status != nil {
		base = base.Where(goqu.Ex{"status": int(*f.Status)})
	}

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, err
	}

	ds := base.Select(requestCols...).Order(goqu.I("request_date").Desc(), goqu.I("id").Desc())
	if p.PageSize > 0 {
		ds = ds.Limit(uint(p.PageSize)).Offset(uint(p.Offset()))
	}
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, err
	}
	items := []Request{}
	if err := s.db.SelectContext(ctx, &items, sqlStr, args...); err != nil {
		return nil, 0, err
	}
	if err := s.attachLines(ctx, s.db, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) ListWithLines(ctx context.Context, f Filter) ([]Request, error) {
	items, _, err := s.List(ctx, f, Page{})
	return items, err
}

// attachLines: 明細と本のタイトルを IN 句で一括取得して各申請にぶら下げる
func (s *Store) attachLines(ctx context.Context, q db.DBTX, rs []Request) error {
	if len(rs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rs))
	idx := make(map[string]int, len(rs))
	for i := range rs {
		ids = append(ids, rs[i].ID)
		idx[rs[i].ID] = i
	}

	stmt, args, err := sqlx.In(`
	SELECT d.request_id, d.book_id, d.line_no, b.title
	FROM book_borrowing_request_details d
	JOIN books b ON b.id = d.book_id
	WHERE d.request_id IN (?)
	ORDER BY d.request_id, d.line_no`, ids)
	if err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, s.db.Rebind(stmt), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	var lines []Line
	if err := sqlx.StructScan(rows, &lines); err != nil {
		return err
	}
	for _, l := range lines {
		if i, ok := idx[l.RequestID]; ok {
			rs[i].Lines = append(rs[i].Lines, l)
		}
	}
	return nil
}
