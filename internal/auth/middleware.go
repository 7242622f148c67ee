package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/errresponse"
)

type ctxKey int8

const ctxKeyUserID ctxKey = iota

// UserID returns the authenticated user id placed on ctx by Authenticator.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(int64)
	return id, ok
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

// Authenticator rejects requests without a valid "Authorization: Bearer"
// token and puts the caller's user id on the request context.
func Authenticator(tokens Tokens, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, r, log)

				return
			}

			id, err := tokens.Verify(token)
			if err != nil {
				log.Debugw("rejecting token", "error", err)
				unauthorized(w, r, log)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func unauthorized(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger) {
	if err := render.Render(w, r, errresponse.ErrUnauthorized); err != nil {
		log.Errorw(err.Error())
	}
}
