package model

import "time"

// Article data model. Rows are owned by the store; cached copies are
// serialized with the JSON tags below and must round-trip exactly.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Category    string    `json:"category,omitempty"`
	IsProcessed bool      `json:"isProcessed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ArticlePage is one page of a listing or search, with the total number of
// matching rows.
type ArticlePage struct {
	Articles []*Article `json:"articles"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}
