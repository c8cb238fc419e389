package borrowing

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Status は申請の状態。Waiting だけが非終端。
type Status int

const (
	StatusWaiting Status = iota
	StatusApproved
	StatusRejected
)

var statusNames = [...]string{"Waiting", "Approved", "Rejected"}

func (s Status) String() string {
	if s < StatusWaiting || s > StatusRejected {
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
	return statusNames[s]
}

func (s Status) Terminal() bool { return s != StatusWaiting }

// ParseStatus は大文字小文字を区別せず、数値 0/1/2 も受け付ける。
// 解釈できない値は ok=false（呼び出し側では「絞り込みなし」として扱う）。
func ParseStatus(v string) (Status, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < int(StatusWaiting) || n > int(StatusRejected) {
			return 0, false
		}
		return Status(n), true
	}
	for i, name := range statusNames {
		if strings.EqualFold(v, name) {
			return Status(i), true
		}
	}
	return 0, false
}

// Request は貸出申請の集約。Lines は申請時の順序を保つ。
type Request struct {
	ID          string         `db:"id"`
	RequestorID string         `db:"requestor_id"`
	RequestDate time.Time      `db:"request_date"`
	Status      Status         `db:"status"`
	ApproverID  sql.NullString `db:"approver_id"`
	Lines       []Line         `db:"-"`
}

type Line struct {
	RequestID string `db:"request_id"`
	BookID    string `db:"book_id"`
	LineNo    int    `db:"line_no"`
	Title     string `db:"title"`
}

func (r *Request) BookIDs() []string {
	ids := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		ids = append(ids, l.BookID)
	}
	return ids
}

// Approve / Reject: Waiting からの一度きりの遷移。承認者は必ずセットされる。
func (r *Request) Approve(approverID string) error {
	return r.transition(StatusApproved, approverID)
}

func (r *Request) Reject(approverID string) error {
	return r.transition(StatusRejected, approverID)
}

func (r *Request) transition(to Status, approverID string) error {
	if r.Status != StatusWaiting {
		return ErrInvalidTransitionf("request %s is already %s", r.ID, r.Status)
	}
	r.Status = to
	r.ApproverID = sql.NullString{String: approverID, Valid: true}
	return nil
}

// Filter: 一覧の絞り込み。nil は条件なし。
type Filter struct {
	RequestorID *string
	Status      *Status
}

// Page: PageIndex は1始まり。PageSize==0 は全件。
type Page struct {
	PageIndex int
	PageSize  int
}

func (p Page) Offset() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.PageIndex - 1) * p.PageSize
}
