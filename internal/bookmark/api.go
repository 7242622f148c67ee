package bookmark

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/articleresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/auth"
	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
)

// BookmarkRequest is the body of POST /bookmarks.
type BookmarkRequest struct {
	ArticleID int64 `json:"articleId"`
}

func (b *BookmarkRequest) Bind(r *http.Request) error {
	if b.ArticleID < 1 {
		return errors.New("articleId is required")
	}

	return nil
}

type API struct {
	service *Service
	log     *zap.SugaredLogger
}

func NewAPI(service *Service, log *zap.SugaredLogger) *API {
	return &API{service: service, log: log}
}

// Routes mounts the bookmark endpoints, all behind authn.
func (a *API) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authn)

	r.Get("/", a.List)
	r.Post("/", a.Add)
	r.Delete("/{articleID}", a.Remove)

	return r
}

func (a *API) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	bookmarks, err := a.service.List(r.Context(), userID)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	if err := render.RenderList(w, r, articleresponse.NewBookmarkListResponse(bookmarks)); err != nil {
		a.render(w, r, errresponse.ErrRender(err))
	}
}

func (a *API) Add(w http.ResponseWriter, r *http.Request) {
	data := &BookmarkRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}
	userID, _ := auth.UserID(r.Context())

	b, err := a.service.Add(r.Context(), userID, data.ArticleID)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	a.render(w, r, articleresponse.NewBookmarkResponse(b))
}

func (a *API) Remove(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseInt(chi.URLParam(r, "articleID"), 10, 64)
	if err != nil {
		a.render(w, r, errresponse.ErrNotFound)

		return
	}
	userID, _ := auth.UserID(r.Context())

	if err := a.service.Remove(r.Context(), userID, articleID); err != nil {
		a.renderErr(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	resp := errresponse.ErrFromStore(err)
	if e, ok := resp.(*errresponse.ErrResponse); ok && e.HTTPStatusCode >= http.StatusInternalServerError {
		a.log.Errorw("bookmark request failed", "path", r.URL.Path, "error", err)
	}
	a.render(w, r, resp)
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.log.Errorw("rendering response", "error", err)
	}
}
