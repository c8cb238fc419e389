package books

import "time"

// Book は books テーブルの1行。0 <= Available <= Quantity を常に満たす。
type Book struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	Quantity  int       `db:"quantity"`
	Available int       `db:"available"`
	CreatedAt time.Time `db:"created_at"`
}

// Held: 貸出申請で押さえられている冊数
func (b Book) Held() int { return b.Quantity - b.Available }

type Page struct {
	Limit  int
	Offset int
}
