package errresponse

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SergeyParamoshkin/newsportal/internal/store"
)

func TestErrFromStore(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("article 1: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("creating article: %w", store.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: disk I/O error", store.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		rd, ok := ErrFromStore(tt.err).(*ErrResponse)
		if !ok {
			t.Fatalf("expected *ErrResponse for %v", tt.err)
		}
		if rd.HTTPStatusCode != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rd.HTTPStatusCode)
		}
	}
}

func TestUnavailableHidesCause(t *testing.T) {
	rd := ErrUnavailable(errors.New("secret path /var/db")).(*ErrResponse)
	if rd.ErrorText != "" {
		t.Errorf("expected no error text, got %q", rd.ErrorText)
	}
}
