package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/auth"
	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/userpayload"
)

type API struct {
	service *Service
	log     *zap.SugaredLogger
}

func NewAPI(service *Service, log *zap.SugaredLogger) *API {
	return &API{service: service, log: log}
}

// Routes mounts the auth endpoints. Register and login pass through limit.
func (a *API) Routes(authn, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/register", a.Register)
		r.Post("/login", a.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Get("/me", a.Me)
		r.Patch("/me", a.UpdateProfile)
	})

	return r
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.RegisterRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	u, token, err := a.service.Register(r.Context(), data.Email, data.Password, data.Name)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	a.render(w, r, userpayload.NewAuthResponse(u, token))
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.LoginRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	u, token, err := a.service.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	a.render(w, r, userpayload.NewAuthResponse(u, token))
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.UserID(r.Context())

	u, err := a.service.Me(r.Context(), id)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	a.render(w, r, userpayload.NewUserPayloadResponse(u))
}

func (a *API) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	data := &userpayload.ProfileRequest{}
	if err := render.Bind(r, data); err != nil {
		a.render(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	id, _ := auth.UserID(r.Context())

	u, err := a.service.UpdateProfile(r.Context(), id, data.Name, data.Password)
	if err != nil {
		a.renderErr(w, r, err)

		return
	}

	a.render(w, r, userpayload.NewUserPayloadResponse(u))
}

func (a *API) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		a.render(w, r, errresponse.ErrBadCredentials(err))

		return
	}

	resp := errresponse.ErrFromStore(err)
	if e, ok := resp.(*errresponse.ErrResponse); ok && e.HTTPStatusCode >= http.StatusInternalServerError {
		a.log.Errorw("auth request failed", "path", r.URL.Path, "error", err)
	}
	a.render(w, r, resp)
}

func (a *API) render(w http.ResponseWriter, r *http.Request, v render.Renderer) {
	if err := render.Render(w, r, v); err != nil {
		a.log.Errorw("rendering response", "error", err)
	}
}
