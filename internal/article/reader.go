package article

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/cache"
	"github.com/SergeyParamoshkin/newsportal/internal/metrics"
	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit within an int.
	MaxPage = math.MaxInt / MaxLimit
)

// Query shapes, used as metric and log labels.
const (
	shapeList    = "list"
	shapeArticle = "article"
	shapeSearch  = "search"
)

var ErrEmptyQuery = errors.New("search query is empty")

// Normalize clamps pagination parameters so equivalent requests share a
// cache key.
func Normalize(page, limit int) (int, int) {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return page, limit
}

// Reader serves article reads cache-aside: the cache is consulted first and
// filled from the store on a miss. Cache failures only cost latency.
type Reader struct {
	store   Store
	cache   cache.Cache
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewReader(store Store, c cache.Cache, log *zap.SugaredLogger, m *metrics.Metrics) *Reader {
	return &Reader{store: store, cache: c, log: log, metrics: m}
}

func (r *Reader) ListArticles(ctx context.Context, page, limit int) (*model.ArticlePage, error) {
	page, limit = Normalize(page, limit)

	return readThrough(ctx, r, shapeList, cache.ArticlesPageKey(page, limit), cache.ListTTL,
		func(ctx context.Context) (*model.ArticlePage, error) {
			return r.store.ListArticles(ctx, page, limit)
		})
}

func (r *Reader) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	return readThrough(ctx, r, shapeArticle, cache.ArticleKey(id), cache.ArticleTTL,
		func(ctx context.Context) (*model.Article, error) {
			return r.store.GetArticle(ctx, id)
		})
}

// SearchArticles returns ErrEmptyQuery for a blank query. The query is
// trimmed before it becomes part of the key.
func (r *Reader) SearchArticles(ctx context.Context, query string, page, limit int) (*model.ArticlePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	page, limit = Normalize(page, limit)

	return readThrough(ctx, r, shapeSearch, cache.SearchKey(query, page, limit), cache.SearchTTL,
		func(ctx context.Context) (*model.ArticlePage, error) {
			return r.store.SearchArticles(ctx, query, page, limit)
		})
}

// readThrough returns the cached value under key or loads, caches and
// returns it. Load errors are returned as is and never cached.
func readThrough[T any](ctx context.Context, r *Reader, shape, key string, ttl time.Duration,
	load func(context.Context) (T, error),
) (T, error) {
	if v, ok := lookup[T](ctx, r, shape, key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Warnw("encoding cache entry", "key", key, "error", err)

		return v, nil
	}
	if err := r.cache.Set(ctx, key, string(payload), ttl); err != nil {
		r.log.Warnw("cache set failed", "shape", shape, "key", key, "error", err)
	}

	return v, nil
}

func lookup[T any](ctx context.Context, r *Reader, shape, key string) (T, bool) {
	var v T

	raw, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.metrics.CacheLookup(ctx, shape, metrics.OutcomeError)
		r.log.Warnw("cache get failed", "shape", shape, "key", key, "error", err)

		return v, false
	case !ok:
		r.metrics.CacheLookup(ctx, shape, metrics.OutcomeMiss)

		return v, false
	}

	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		r.metrics.CacheLookup(ctx, shape, metrics.OutcomeError)
		r.log.Warnw("discarding undecodable cache entry", "key", key, "error", err)

		return v, false
	}
	r.metrics.CacheLookup(ctx, shape, metrics.OutcomeHit)

	return v, true
}

// InvalidateArticleLists drops every cached listing page.
func (r *Reader) InvalidateArticleLists(ctx context.Context) error {
	return r.dropPrefix(ctx, cache.ArticlesPrefix)
}

// InvalidateSearch drops every cached search page.
func (r *Reader) InvalidateSearch(ctx context.Context) error {
	return r.dropPrefix(ctx, cache.SearchPrefix)
}

func (r *Reader) InvalidateArticle(ctx context.Context, id int64) error {
	return r.cache.Delete(ctx, cache.ArticleKey(id))
}

// Flush drops all three key families and reports how many entries went.
func (r *Reader) Flush(ctx context.Context) (int, error) {
	total := 0
	for _, prefix := range []string{cache.ArticlesPrefix, cache.ArticlePrefix, cache.SearchPrefix} {
		n, err := r.cache.DeleteByPrefix(ctx, prefix)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (r *Reader) dropPrefix(ctx context.Context, prefix string) error {
	n, err := r.cache.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	r.log.Debugw("invalidated cache entries", "prefix", prefix, "count", n)

	return nil
}
