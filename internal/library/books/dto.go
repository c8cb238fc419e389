package books

import "time"

// ===== Requests =====

type CreateBookRequest struct {
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author" binding:"required"`
	Quantity *int   `json:"quantity" binding:"required"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// ===== Responses =====

type BookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Quantity  int       `json:"quantity"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

type ListBooksResult struct {
	Items      []BookResponse `json:"items"`
	Total      int64          `json:"total"`
	NextOffset int            `json:"next_offset"`
}

func toResponse(b *Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Quantity:  b.Quantity,
		Available: b.Available,
		CreatedAt: b.CreatedAt,
	}
}
