package article

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/articlerequest"
	"github.com/SergeyParamoshkin/newsportal/internal/articleresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
)

type API struct {
	reader *Reader
	writer *Writer
	log    *zap.SugaredLogger
}

func NewAPI(reader *Reader, writer *Writer, log *zap.SugaredLogger) *API {
	return &API{reader: reader, writer: writer, log: log}
}

// Routes mounts the article endpoints. Reads are public; writes go through
// authn.
func (a *API) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(Paginate).Get("/", a.ListArticles)
	r.With(Paginate).Get("/search", a.SearchArticles) // GET /articles/search?q=climate
	r.With(authn).Post("/", a.CreateArticle)          // POST /articles

	r.Route("/{articleID}", func(r chi.Router) {
		r.With(a.ArticleCtx).Get("/", a.GetArticle) // GET /articles/123
		r.With(authn).Put("/", a.UpdateArticle)     // PUT /articles/123
		r.With(authn).Delete("/", a.DeleteArticle)  // DELETE /articles/123
	})

	return r
}

func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	page, limit := pageFromContext(r.Context())

	result, err := a.reader.ListArticles(r.Context(), page, limit)
	if err != nil {
		a.renderStoreErr(w, r, err)

		return
	}

	a.render(w, r, articleresponse.NewArticlePageResponse(result))
}

// SearchArticles searches title, content and summary for the q parameter.
func (a *API) SearchArticles(w http.ResponseWriter, r *http.Request) {
	page, limit := pageFromContext(r.Context())

	result, err := a.reader.SearchArticles(r.Context(), r.URL.Query().Get("q"), page, limit)
	switch {
	case errors.Is(err, ErrEmptyQuery):
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	case err != nil:
		a.renderStoreErr(w, r, err)

		return
	}

	a.render(w, r, articleresponse.NewArticlePageResponse(result))
}

// CreateArticle persists the posted Article and returns it
// back to the client as an acknowledgement.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	data := &articlerequest.ArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	article, err := a.writer.CreateArticle(r.Context(), data.Article())
	if err != nil {
		a.renderStoreErr(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	a.render(w, r, articleresponse.NewArticleResponse(article))
}

// GetArticle returns the specific Article. You'll notice it just
// fetches the Article right off the context, as its understood that
// if we made it this far, the Article must be on the context.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	article := articleFromContext(r.Context())

	if err := render.Render(w, r, articleresponse.NewArticleResponse(article)); err != nil {
		a.render(w, r, errresponse.ErrRender(err))
	}
}

// UpdateArticle changes the fields present in the body.
func (a *API) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		a.render(w, r, errresponse.ErrNotFound)

		return
	}

	data := &articlerequest.ArticlePatch{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	article, err := a.writer.UpdateArticle(r.Context(), id, data.Apply)
	if err != nil {
		a.renderStoreErr(w, r, err)

		return
	}

	a.render(w, r, articleresponse.NewArticleResponse(article))
}

// DeleteArticle removes an existing Article from our persistent store.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(r)
	if !ok {
		a.render(w, r, errresponse.ErrNotFound)

		return
	}

	article, err := a.writer.DeleteArticle(r.Context(), id)
	if err != nil {
		a.renderStoreErr(w, r, err)

		return
	}

	a.render(w, r, articleresponse.NewArticleResponse(article))
}
