package article

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

type ctxKey int8

const (
	ctxKeyArticle ctxKey = iota
	ctxKeyPage
)

type pagination struct {
	page, limit int
}

// ArticleCtx middleware is used to load an Article object from
// the URL parameters passed through as the request. In case
// the Article could not be found, we stop here and return a 404.
func (a *API) ArticleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := articleID(r)
		if !ok {
			a.render(w, r, errresponse.ErrNotFound)

			return
		}

		article, err := a.reader.GetArticle(r.Context(), id)
		if err != nil {
			a.renderStoreErr(w, r, err)

			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyArticle, article)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func articleFromContext(ctx context.Context) *model.Article {
	// ArticleCtx always sets it. A panic here is a routing bug and the
	// recoverer will save us.
	return ctx.Value(ctxKeyArticle).(*model.Article)
}

// Paginate reads the page and limit query parameters. Missing or malformed
// values fall back to the defaults.
func Paginate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		page, limit = Normalize(page, limit)

		ctx := context.WithValue(r.Context(), ctxKeyPage, pagination{page: page, limit: limit})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pageFromContext(ctx context.Context) (int, int) {
	p, ok := ctx.Value(ctxKeyPage).(pagination)
	if !ok {
		return Normalize(0, 0)
	}

	return p.page, p.limit
}

func articleID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}

	return id, true
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.log.Errorw("rendering response", "error", err)
	}
}

func (a *API) renderStoreErr(w http.ResponseWriter, r *http.Request, err error) {
	resp := errresponse.ErrFromStore(err)
	if e, ok := resp.(*errresponse.ErrResponse); ok && e.HTTPStatusCode >= http.StatusInternalServerError {
		a.log.Errorw("store request failed", "path", r.URL.Path, "error", err)
	}
	a.render(w, r, resp)
}
