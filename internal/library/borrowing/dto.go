package borrowing

import "time"

// ===== Requests =====

type SubmitRequest struct {
	BookIDs []string `json:"bookIds"`
}

// ===== Responses =====

type LineResponse struct {
	BookID string `json:"bookId"`
	Title  string `json:"title,omitempty"`
}

type RequestResponse struct {
	ID          string         `json:"id"`
	RequestorID string         `json:"requestorId"`
	RequestDate time.Time      `json:"requestDate"`
	Status      string         `json:"status"`
	ApproverID  *string        `json:"approverId"`
	Books       []LineResponse `json:"books"`
}

type PagedResult struct {
	Items      []RequestResponse `json:"items"`
	TotalCount int64             `json:"totalCount"`
	PageIndex  int               `json:"pageIndex"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

func toResponse(r *Request) RequestResponse {
	res := RequestResponse{
		ID:          r.ID,
		RequestorID: r.RequestorID,
		RequestDate: r.RequestDate,
		Status:      r.Status.String(),
		Books:       make([]LineResponse, 0, len(r.Lines)),
	}
	if r.ApproverID.Valid {
		v := r.ApproverID.String
		res.ApproverID = &v
	}
	for _, l := range r.Lines {
		res.Books = append(res.Books, LineResponse{BookID: l.BookID, Title: l.Title})
	}
	return res
}

// newPagedResult: PageSize==0（ページ指定なし）は全件を1ページとして返す
func newPagedResult(items []Request, total int64, p Page) PagedResult {
	out := make([]RequestResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	if p.PageSize == 0 {
		p.PageIndex, p.PageSize = 1, int(total)
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return PagedResult{
		Items:      out,
		TotalCount: total,
		PageIndex:  p.PageIndex,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
