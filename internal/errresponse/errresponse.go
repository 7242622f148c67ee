package errresponse

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/newsportal/internal/store"
)

//--
// Error response payloads & renderers
//--

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	AppCode    int64  `json:"code,omitempty"`  // application-specific error code
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func (e *ErrResponse) Error() string {
	if e.ErrorText != "" {
		return e.StatusText + " " + e.ErrorText
	}

	return e.StatusText
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

func ErrConflict(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Resource already exists.",
		ErrorText:      err.Error(),
	}
}

func ErrBadCredentials(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorText:      err.Error(),
	}
}

// ErrUnavailable hides the underlying failure from the client.
func ErrUnavailable(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusServiceUnavailable,
		StatusText:     "Service unavailable.",
	}
}

var (
	ErrNotFound        = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
	ErrUnauthorized    = &ErrResponse{HTTPStatusCode: http.StatusUnauthorized, StatusText: "Unauthorized."}
	ErrTooManyRequests = &ErrResponse{HTTPStatusCode: http.StatusTooManyRequests, StatusText: "Too many requests."}
)

// ErrFromStore maps a store error to its response. Anything that is not a
// missing row or a uniqueness violation is a 503.
func ErrFromStore(err error) render.Renderer {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict(err)
	default:
		return ErrUnavailable(err)
	}
}
