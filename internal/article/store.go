package article

import (
	"context"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

// Store is the read side of the relational store used by Reader.
type Store interface {
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
	ListArticles(ctx context.Context, page, limit int) (*model.ArticlePage, error)
	SearchArticles(ctx context.Context, query string, page, limit int) (*model.ArticlePage, error)
}

// WriteStore is the write side of the relational store used by Writer.
type WriteStore interface {
	CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error)
	UpdateArticle(ctx context.Context, id int64, mutate func(*model.Article) error) (*model.Article, error)
	DeleteArticle(ctx context.Context, id int64) (*model.Article, error)
}
