package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyParamoshkin/newsportal/internal/article"
	"github.com/SergeyParamoshkin/newsportal/internal/auth"
	"github.com/SergeyParamoshkin/newsportal/internal/bookmark"
	"github.com/SergeyParamoshkin/newsportal/internal/cache"
	"github.com/SergeyParamoshkin/newsportal/internal/config"
	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/metrics"
	"github.com/SergeyParamoshkin/newsportal/internal/store"
	"github.com/SergeyParamoshkin/newsportal/internal/user"
)

const ServiceName = "newsportal"

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
)

const shutdownTimeout = 10 * time.Second

type App struct {
	sugarLogger *zap.SugaredLogger
	config      *config.Config

	exporter *prometheus.Exporter
	metrics  *metrics.Metrics
	store    *store.Store
	cache    cache.Cache

	reader    *article.Reader
	writer    *article.Writer
	users     *user.Service
	bookmarks *bookmark.Service
	tokens    auth.Tokens
	limiter   *auth.RateLimiter
}

// NewApp opens the store (migrating it) and the cache and wires the
// services. An unreachable Redis is not fatal: reads fall through to the
// store until it comes back.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	exporter, err := metrics.NewExporter()
	if err != nil {
		return nil, fmt.Errorf("initializing prometheus exporter: %w", err)
	}
	m := metrics.Global(ServiceName)

	st, err := store.Open(cfg.DatabasePath, store.WithObserver(m))
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	c, err := cache.Open(ctx, cfg.CacheOptions())
	switch {
	case c == nil:
		st.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	case err != nil:
		log.Warnw("cache unreachable, serving reads from the store", "backend", cfg.Cache.Backend, "error", err)
	}

	a := &App{
		sugarLogger: log,
		config:      cfg,
		exporter:    exporter,
		metrics:     m,
		store:       st,
		cache:       c,
		tokens:      auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		limiter:     auth.NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst, log),
	}
	a.reader = article.NewReader(st, c, log.Named("reader"), m)
	a.writer = article.NewWriter(st, a.reader, log.Named("writer"))
	a.users = user.NewService(st, auth.NewBcrypt(cfg.Auth.BcryptCost), a.tokens, log.Named("user"))
	a.bookmarks = bookmark.NewService(st, log.Named("bookmark"))

	return a, nil
}

// Router is the public API.
func (a *App) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.Logger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Use(middleware.URLFormat)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("root."))
		if err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logger := r.Context().Value(CtxKeyLogger).(*zap.SugaredLogger)
		logger.Debugw("ping")
		_, err := w.Write([]byte("pong"))
		if err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	})

	authn := auth.Authenticator(a.tokens, a.sugarLogger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/articles", article.NewAPI(a.reader, a.writer, a.sugarLogger).Routes(authn))
		r.Mount("/auth", user.NewAPI(a.users, a.sugarLogger).Routes(authn, a.limiter.Handler))
		r.Mount("/bookmarks", bookmark.NewAPI(a.bookmarks, a.sugarLogger).Routes(authn))
	})

	return r
}

// DiagRouter serves operator endpoints and must not be exposed publicly.
func (a *App) DiagRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/metrics", a.exporter.ServeHTTP)
	r.Post("/cache/flush", a.FlushCache)

	return r
}

// FlushCache drops every cached article read.
func (a *App) FlushCache(w http.ResponseWriter, r *http.Request) {
	n, err := a.reader.Flush(r.Context())
	if err != nil {
		a.sugarLogger.Errorw("flushing cache", "flushed", n, "error", err)
		if err := render.Render(w, r, errresponse.ErrUnavailable(err)); err != nil {
			a.sugarLogger.Errorw(err.Error())
		}

		return
	}
	a.sugarLogger.Infow("flushed cache", "flushed", n)
	render.JSON(w, r, render.M{"flushed": n})
}

func (a *App) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := a.sugarLogger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxKeyLogger, logger)))
	})
}

// Serve runs the API and diag listeners until ctx is done, then drains
// both and closes the app.
func (a *App) Serve(ctx context.Context) error {
	servers := []*http.Server{
		a.server(a.config.Addr, a.Router()),
		a.server(a.config.DiagAddr, a.DiagRouter()),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			a.sugarLogger.Infow("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listening on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.sugarLogger.Infow("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	return errors.Join(err, a.Close())
}

func (a *App) server(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Close releases the cache and the store.
func (a *App) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}
