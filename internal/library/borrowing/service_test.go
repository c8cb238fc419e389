package borrowing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *memDB, *fixedClock) {
	t.Helper()
	m := newMemDB()
	m.users["S1"] = true
	svc, clk := newTestService(m, testNow)
	return svc, m, clk
}

// 各本について quantity == available + 却下以外の申請が押さえている冊数
func assertConservation(t *testing.T, m *memDB) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	held := map[string]int{}
	for _, r := range m.requests {
		assert.GreaterOrEqual(t, len(r.Lines), 1)
		assert.LessOrEqual(t, len(r.Lines), DefaultMaxBooksPerRequest)
		assert.Equal(t, r.Status.Terminal(), r.ApproverID.Valid, "approver set iff terminal")
		if r.Status == StatusRejected {
			continue
		}
		for _, l := range r.Lines {
			held[l.BookID]++
		}
	}
	for id, b := range m.books {
		assert.GreaterOrEqual(t, b.available, 0, id)
		assert.LessOrEqual(t, b.available, b.quantity, id)
		assert.Equal(t, b.quantity, b.available+held[id], "conservation for %s", id)
	}
}

func TestSubmitApproveRejectScenario(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 1, 1)

	// 1. U1 が A を申請 → 在庫 0
	r1, err := svc.Submit(ctx, "U1", []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, r1.Status)
	assert.False(t, r1.ApproverID.Valid)
	assert.Equal(t, testNow, r1.RequestDate)
	assert.Equal(t, []string{"A"}, r1.BookIDs())
	assert.Equal(t, 0, m.available("A"))

	// 2. U2 は在庫切れ
	_, err = svc.Submit(ctx, "U2", []string{"A"})
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.Equal(t, CodeBookUnavailable, CodeOf(err))

	// 3. S1 が却下 → 在庫が戻る
	rejected, err := svc.Reject(ctx, "S1", r1.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "S1", rejected.ApproverID.String)
	assert.Equal(t, 1, m.available("A"))

	// 6. 承認済みで絞り込むと 0 件
	res, err := svc.List(ctx, Filter{Status: statusPtr(StatusApproved)}, Page{PageIndex: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, int64(0), res.TotalCount)

	assertConservation(t, m)
}

func TestSubmit_MonthlyQuota(t *testing.T) {
	ctx := context.Background()
	svc, m, clk := setup(t)
	for i := 1; i <= 6; i++ {
		m.addBook(fmt.Sprintf("B%d", i), 1, 1)
	}

	var ids []string
	for i := 1; i <= 3; i++ {
		r, err := svc.Submit(ctx, "U1", []string{fmt.Sprintf("B%d", i)})
		require.NoError(t, err, "request %d", i)
		ids = append(ids, r.ID)
	}

	// 4件目は在庫があっても不可。在庫にも触れない
	_, err := svc.Submit(ctx, "U1", []string{"B4"})
	assert.ErrorIs(t, err, ErrMonthlyQuotaExceeded)
	assert.Equal(t, 1, m.available("B4"))

	// 他のユーザーには影響しない
	_, err = svc.Submit(ctx, "U2", []string{"B4"})
	require.NoError(t, err)

	// 却下された申請は数えない
	_, err = svc.Reject(ctx, "S1", ids[0])
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "U1", []string{"B5"})
	require.NoError(t, err)

	// 翌月になればリセット
	clk.t = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Submit(ctx, "U1", []string{"B6"})
	require.NoError(t, err)

	assertConservation(t, m)
}

func TestSubmit_BookCountBoundaries(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	for i := 1; i <= 6; i++ {
		m.addBook(fmt.Sprintf("B%d", i), 2, 2)
	}

	_, err := svc.Submit(ctx, "U1", nil)
	assert.ErrorIs(t, err, ErrEmptyRequest)
	_, err = svc.Submit(ctx, "U1", []string{})
	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.Equal(t, 0, m.txCount, "validation runs before touching inventory")

	_, err = svc.Submit(ctx, "U1", []string{"B1", "B2", "B3", "B4", "B5", "B6"})
	assert.ErrorIs(t, err, ErrTooManyBooks)

	_, err = svc.Submit(ctx, "U1", []string{"B1", "B2", "B1"})
	assert.ErrorIs(t, err, ErrDuplicateBook)

	r, err := svc.Submit(ctx, "U1", []string{"B1", "B2", "B3", "B4", "B5"})
	require.NoError(t, err)
	assert.Len(t, r.Lines, 5)
	for i, l := range r.Lines {
		assert.Equal(t, i+1, l.LineNo)
	}
	assert.Equal(t, 1, m.available("B5"))
	assert.Equal(t, 2, m.available("B6"))

	assertConservation(t, m)
}

func TestSubmit_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 1, 1)
	m.addBook("B", 2, 2)
	m.addBook("C", 1, 1)
	m.addBook("D", 1, 1)

	// C の唯一の1冊は U2 が押さえている
	_, err := svc.Submit(ctx, "U2", []string{"C"})
	require.NoError(t, err)
	require.Equal(t, 0, m.available("C"))

	_, err = svc.Submit(ctx, "U1", []string{"A", "B", "C", "D"})
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.Contains(t, err.Error(), "C")

	assert.Equal(t, 1, m.available("A"))
	assert.Equal(t, 2, m.available("B"))
	assert.Equal(t, 0, m.available("C"))
	assert.Equal(t, 1, m.available("D"))
	assert.Len(t, m.requests, 1)

	_, err = svc.Submit(ctx, "U1", []string{"A", "missing"})
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, 1, m.available("A"))
	assert.Len(t, m.requests, 1)

	assertConservation(t, m)
}

func TestSubmitThenRejectRestoresAvailability(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 3, 3)
	m.addBook("B", 1, 1)
	m.addBook("C", 2, 2)

	other, err := svc.Submit(ctx, "U2", []string{"C"})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, "S1", other.ID)
	require.NoError(t, err)

	r, err := svc.Submit(ctx, "U1", []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 0}, []int{m.available("A"), m.available("B"), m.available("C")})
	assertConservation(t, m)

	rejected, err := svc.Reject(ctx, "S1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1}, []int{m.available("A"), m.available("B"), m.available("C")})
	assertConservation(t, m)

	// 申請・却下の結果も GET と同じくタイトル付き
	require.Len(t, r.Lines, 3)
	assert.Equal(t, "title-A", r.Lines[0].Title)
	require.Len(t, rejected.Lines, 3)
	assert.Equal(t, "title-C", rejected.Lines[2].Title)
}

func TestDecide_Transitions(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 2, 2)

	r, err := svc.Submit(ctx, "U1", []string{"A"})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, "S1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, 1, m.available("A"), "approval keeps the hold")

	_, err = svc.Approve(ctx, "S1", r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Reject(ctx, "S1", r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, m.available("A"))

	got, err := svc.Get(ctx, "S1", true, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	assertConservation(t, m)
}

func TestDecide_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 1, 1)
	r, err := svc.Submit(ctx, "U1", []string{"A"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, "ghost", r.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Reject(ctx, "S1", "no-such-request")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	// 申請の有無を先に判定する
	_, err = svc.Approve(ctx, "ghost", "no-such-request")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.Approve(ctx, "", r.ID)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	assert.Equal(t, 0, m.available("A"))
}

func TestDecide_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 1, 1)
	m.addBook("B", 2, 2)

	r, err := svc.Submit(ctx, "U1", []string{"A", "B"})
	require.NoError(t, err)

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.Approve(ctx, "S1", r.ID)
			} else {
				_, err = svc.Reject(ctx, "S1", r.ID)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case CodeOf(err) == CodeInvalidTransition:
				invalid++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, invalid)
	assertConservation(t, m)
}

func TestSubmit_ConcurrentSameBook(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 3, 3)

	const n = 12
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, fmt.Sprintf("U%d", i), []string{"A"})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrBookUnavailable)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 0, m.available("A"))
	assertConservation(t, m)
}

func TestGet_MemberSeesOnlyOwn(t *testing.T) {
	ctx := context.Background()
	svc, m, _ := setup(t)
	m.addBook("A", 2, 2)
	r, err := svc.Submit(ctx, "U1", []string{"A"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "U1", false, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "title-A", got.Lines[0].Title)

	_, err = svc.Get(ctx, "U2", false, r.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestList_Paging(t *testing.T) {
	ctx := context.Background()
	svc, m, clk := setup(t)
	for i := 1; i <= 5; i++ {
		m.addBook(fmt.Sprintf("B%d", i), 1, 1)
	}
	// 月をずらして上限に当たらないようにする
	for i := 1; i <= 5; i++ {
		clk.t = time.Date(2024, time.Month(i), 10, 0, 0, 0, 0, time.UTC)
		_, err := svc.Submit(ctx, "U1", []string{fmt.Sprintf("B%d", i)})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, Filter{}, Page{PageIndex: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "B1", res.Items[0].Books[0].BookID, "oldest last")

	all, err := svc.List(ctx, Filter{}, Page{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 5)
	assert.Equal(t, 1, all.PageIndex)
	assert.Equal(t, 5, all.PageSize)
	assert.Equal(t, 1, all.TotalPages)

	mine, err := svc.ListByRequestor(ctx, "U2", nil, Page{})
	require.NoError(t, err)
	assert.Empty(t, mine.Items)
	assert.Equal(t, 0, mine.TotalPages)

	_, err = svc.List(ctx, Filter{}, Page{PageIndex: 0, PageSize: 5})
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func statusPtr(s Status) *Status { return &s }
