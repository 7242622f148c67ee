package article

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/SergeyParamoshkin/newsportal/internal/cache"
	"github.com/SergeyParamoshkin/newsportal/internal/model"
	"github.com/SergeyParamoshkin/newsportal/internal/store"
)

// countingStore counts the reads that reach the database.
type countingStore struct {
	*store.Store
	gets, lists, searches atomic.Int32
}

func (s *countingStore) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	s.gets.Add(1)
	return s.Store.GetArticle(ctx, id)
}

func (s *countingStore) ListArticles(ctx context.Context, page, limit int) (*model.ArticlePage, error) {
	s.lists.Add(1)
	return s.Store.ListArticles(ctx, page, limit)
}

func (s *countingStore) SearchArticles(ctx context.Context, query string, page, limit int) (*model.ArticlePage, error) {
	s.searches.Add(1)
	return s.Store.SearchArticles(ctx, query, page, limit)
}

type fixture struct {
	store  *countingStore
	redis  *miniredis.Miniredis
	reader *Reader
	writer *Writer
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "articles.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	m := miniredis.RunT(t)
	c, err := cache.NewRedis("redis://"+m.Addr(), time.Second)
	if err != nil {
		t.Fatalf("connecting cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core).Sugar()

	f := &fixture{store: &countingStore{Store: st}, redis: m, logs: logs}
	f.reader = NewReader(f.store, c, log, nil)
	f.writer = NewWriter(st, f.reader, log)

	return f
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func (f *fixture) addArticle(t *testing.T, n int) *model.Article {
	t.Helper()
	a, err := f.store.CreateArticle(context.Background(), &model.Article{
		Title:       fmt.Sprintf("Article %d", n),
		Content:     fmt.Sprintf("Body of article %d about climate", n),
		URL:         fmt.Sprintf("https://news.example.com/%d", n),
		PublishedAt: baseTime.Add(time.Duration(n) * time.Hour),
		Source:      "Wire",
	})
	if err != nil {
		t.Fatalf("creating article %d: %v", n, err)
	}
	return a
}

var errCacheDown = errors.New("connection refused")

// downCache fails every operation.
type downCache struct{}

func (downCache) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("%w: %v", cache.ErrUnavailable, errCacheDown)
}

func (downCache) Set(context.Context, string, string, time.Duration) error {
	return fmt.Errorf("%w: %v", cache.ErrUnavailable, errCacheDown)
}

func (downCache) Delete(context.Context, string) error {
	return fmt.Errorf("%w: %v", cache.ErrUnavailable, errCacheDown)
}

func (downCache) DeleteByPrefix(context.Context, string) (int, error) {
	return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, errCacheDown)
}

func (downCache) Exists(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%w: %v", cache.ErrUnavailable, errCacheDown)
}

func (downCache) Close() error { return nil }
