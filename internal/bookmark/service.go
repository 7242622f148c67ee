// Package bookmark lets a signed-in user keep a list of saved articles.
// Bookmarks are read straight from the store and never cached.
package bookmark

import (
	"context"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

type Store interface {
	CreateBookmark(ctx context.Context, userID, articleID int64) (*model.Bookmark, error)
	ListBookmarks(ctx context.Context, userID int64) ([]*model.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, articleID int64) error
}

type Service struct {
	store Store
	log   *zap.SugaredLogger
}

func NewService(store Store, log *zap.SugaredLogger) *Service {
	return &Service{store: store, log: log}
}

// Add bookmarks articleID for userID. A missing article is store.ErrNotFound
// and a repeated bookmark is store.ErrConflict.
func (s *Service) Add(ctx context.Context, userID, articleID int64) (*model.Bookmark, error) {
	b, err := s.store.CreateBookmark(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}
	s.log.Debugw("bookmarked article", "user", userID, "article", articleID)

	return b, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]*model.Bookmark, error) {
	return s.store.ListBookmarks(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, articleID int64) error {
	return s.store.DeleteBookmark(ctx, userID, articleID)
}
