package borrowing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/db"
)

type memBook struct {
	title     string
	quantity  int
	available int
}

// memDB: TxRunner / Repository / Inventory / UserFinder をまとめた in-memory 実装。
// InTx はロックを握ったまま fn を実行し、エラー時はスナップショットに戻す。
type memDB struct {
	mu       sync.Mutex
	books    map[string]*memBook
	requests map[string]*Request
	users    map[string]bool
	txCount  int
}

func newMemDB() *memDB {
	return &memDB{
		books:    map[string]*memBook{},
		requests: map[string]*Request{},
		users:    map[string]bool{},
	}
}

func (m *memDB) addBook(id string, qty, avail int) {
	m.books[id] = &memBook{title: "title-" + id, quantity: qty, available: avail}
}

func (m *memDB) available(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id].available
}

func (m *memDB) InTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	booksSnap := make(map[string]memBook, len(m.books))
	for k, v := range m.books {
		booksSnap[k] = *v
	}
	reqSnap := make(map[string]*Request, len(m.requests))
	for k, v := range m.requests {
		reqSnap[k] = cloneRequest(v)
	}

	if err := fn(ctx, nil); err != nil {
		for k, v := range booksSnap {
			b := v
			m.books[k] = &b
		}
		m.requests = reqSnap
		return err
	}
	return nil
}

// ---- Inventory (Tx 内から呼ばれる: ロック取得済み) ----

func (m *memDB) Reserve(ctx context.Context, _ db.DBTX, bookID string) error {
	b, ok := m.books[bookID]
	if !ok {
		return books.ErrBookNotFound
	}
	if b.available == 0 {
		return books.ErrNoCopiesAvailable
	}
	b.available--
	return nil
}

func (m *memDB) Release(ctx context.Context, _ db.DBTX, bookID string) error {
	b, ok := m.books[bookID]
	if !ok {
		return books.ErrBookNotFound
	}
	if b.available >= b.quantity {
		return books.ErrAvailableOverflow
	}
	b.available++
	return nil
}

// ---- Repository ----

func (m *memDB) CountActiveInPeriod(ctx context.Context, _ db.DBTX, requestorID string, from, to time.Time) (int, error) {
	n := 0
	for _, r := range m.requests {
		if r.RequestorID != requestorID || r.Status == StatusRejected {
			continue
		}
		if !r.RequestDate.Before(from) && r.RequestDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *memDB) Insert(ctx context.Context, _ db.DBTX, r *Request) error {
	if _, dup := m.requests[r.ID]; dup {
		return fmt.Errorf("duplicate request id %s", r.ID)
	}
	m.requests[r.ID] = cloneRequest(r)
	return nil
}

func (m *memDB) GetForUpdate(ctx context.Context, _ db.DBTX, id string) (*Request, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return m.withTitles(cloneRequest(r)), nil
}

func (m *memDB) UpdateStatus(ctx context.Context, _ db.DBTX, r *Request) error {
	cur, ok := m.requests[r.ID]
	if !ok || cur.Status != StatusWaiting {
		return ErrInvalidTransitionf("request %s is no longer waiting", r.ID)
	}
	cur.Status = r.Status
	cur.ApproverID = r.ApproverID
	return nil
}

func (m *memDB) Get(ctx context.Context, id string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return m.withTitles(cloneRequest(r)), nil
}

func (m *memDB) List(ctx context.Context, f Filter, p Page) ([]Request, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []Request
	for _, r := range m.requests {
		if f.RequestorID != nil && r.RequestorID != *f.RequestorID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		all = append(all, *m.withTitles(cloneRequest(r)))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].RequestDate.Equal(all[j].RequestDate) {
			return all[i].RequestDate.After(all[j].RequestDate)
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	if p.PageSize > 0 {
		start := p.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + p.PageSize
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (m *memDB) ListWithLines(ctx context.Context, f Filter) ([]Request, error) {
	rs, _, err := m.List(ctx, f, Page{})
	return rs, err
}

func (m *memDB) withTitles(r *Request) *Request {
	for i := range r.Lines {
		if b, ok := m.books[r.Lines[i].BookID]; ok {
			r.Lines[i].Title = b.title
		}
	}
	return r
}

// ---- UserFinder ----

// Tx 内からも呼ばれるのでロックは取らない。users はテスト準備後に書き換えない。
func (m *memDB) Exists(ctx context.Context, id string) (bool, error) {
	return m.users[id], nil
}

func cloneRequest(r *Request) *Request {
	c := *r
	c.Lines = append([]Line(nil), r.Lines...)
	return &c
}

// ---- clock / id ----

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type seqID struct{ n atomic.Int64 }

func (g *seqID) NewULID(time.Time) string { return fmt.Sprintf("req-%04d", g.n.Add(1)) }

func newTestService(m *memDB, now time.Time) (*Service, *fixedClock) {
	clk := &fixedClock{t: now}
	s := NewService(m, m, m, m, Options{}, nil)
	s.clock = clk
	s.id = &seqID{}
	return s, clk
}
