package article

import (
	"context"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

// Invalidator drops cached reads made stale by a write.
type Invalidator interface {
	InvalidateArticleLists(ctx context.Context) error
	InvalidateSearch(ctx context.Context) error
	InvalidateArticle(ctx context.Context, id int64) error
}

// Writer persists article changes and then invalidates the affected cache
// entries. Cache entries are only touched after the store has confirmed the
// write. This assumes reads see the write immediately; with a lagging
// replica, invalidation would have to wait for replication.
type Writer struct {
	store       WriteStore
	invalidator Invalidator
	log         *zap.SugaredLogger
}

func NewWriter(store WriteStore, invalidator Invalidator, log *zap.SugaredLogger) *Writer {
	return &Writer{store: store, invalidator: invalidator, log: log}
}

func (w *Writer) CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	created, err := w.store.CreateArticle(ctx, a)
	if err != nil {
		return nil, err
	}
	w.invalidate(ctx, "create", created.ID, false)

	return created, nil
}

// UpdateArticle applies apply to the stored article.
func (w *Writer) UpdateArticle(ctx context.Context, id int64, apply func(*model.Article) error) (*model.Article, error) {
	updated, err := w.store.UpdateArticle(ctx, id, apply)
	if err != nil {
		return nil, err
	}
	w.invalidate(ctx, "update", id, true)

	return updated, nil
}

// DeleteArticle removes the article and, with it, its bookmarks.
func (w *Writer) DeleteArticle(ctx context.Context, id int64) (*model.Article, error) {
	deleted, err := w.store.DeleteArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	w.invalidate(ctx, "delete", id, true)

	return deleted, nil
}

// invalidate runs detached from the caller's cancellation: the write has
// already happened. Failures are logged; stale entries age out with their TTL.
func (w *Writer) invalidate(ctx context.Context, op string, id int64, single bool) {
	ctx = context.WithoutCancel(ctx)

	if err := w.invalidator.InvalidateArticleLists(ctx); err != nil {
		w.log.Warnw("invalidating article lists", "op", op, "article", id, "error", err)
	}
	if err := w.invalidator.InvalidateSearch(ctx); err != nil {
		w.log.Warnw("invalidating search results", "op", op, "article", id, "error", err)
	}
	if !single {
		return
	}
	if err := w.invalidator.InvalidateArticle(ctx, id); err != nil {
		w.log.Warnw("invalidating article", "op", op, "article", id, "error", err)
	}
}
