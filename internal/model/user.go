package model

import "time"

// User data model. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Bookmark links a user to an article.
type Bookmark struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ArticleID int64     `json:"articleId"`
	CreatedAt time.Time `json:"createdAt"`

	Article *Article `json:"article,omitempty"`
}
