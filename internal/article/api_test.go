package article

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/newsportal/internal/articleresponse"
	"github.com/SergeyParamoshkin/newsportal/internal/auth"
)

// fakeAuthn admits requests carrying any Authorization header.
func fakeAuthn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), 1)))
	})
}

func testServer(t *testing.T) (*fixture, *httptest.Server) {
	t.Helper()
	f := newFixture(t)

	r := chi.NewRouter()
	r.Mount("/articles", NewAPI(f.reader, f.writer, zap.NewNop().Sugar()).Routes(fakeAuthn))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return f, srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, authed bool) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer test")
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	return resp.StatusCode, b
}

const newArticle = `{"title":"Floods","content":"Rivers rose","url":"https://news.example.com/floods",
	"publishedAt":"2024-03-02T08:00:00Z","source":"Wire","id":77}`

func TestArticleStatuses(t *testing.T) {
	f, srv := testServer(t)
	f.addArticle(t, 1)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		authed bool
		want   int
	}{
		{"list", "GET", "/articles?page=1&limit=5", "", false, http.StatusOK},
		{"get", "GET", "/articles/1", "", false, http.StatusOK},
		{"get missing", "GET", "/articles/999", "", false, http.StatusNotFound},
		{"get malformed id", "GET", "/articles/abc", "", false, http.StatusNotFound},
		{"search", "GET", "/articles/search?q=climate", "", false, http.StatusOK},
		{"search blank", "GET", "/articles/search?q=%20", "", false, http.StatusBadRequest},
		{"create unauthenticated", "POST", "/articles", newArticle, false, http.StatusUnauthorized},
		{"create invalid", "POST", "/articles", `{"title":"x"}`, true, http.StatusBadRequest},
		{"create", "POST", "/articles", newArticle, true, http.StatusCreated},
		{"create duplicate url", "POST", "/articles", newArticle, true, http.StatusConflict},
		{"update", "PUT", "/articles/1", `{"title":"Changed"}`, true, http.StatusOK},
		{"update empty title", "PUT", "/articles/1", `{"title":" "}`, true, http.StatusBadRequest},
		{"update missing", "PUT", "/articles/999", `{"title":"Changed"}`, true, http.StatusNotFound},
		{"delete unauthenticated", "DELETE", "/articles/1", "", false, http.StatusUnauthorized},
		{"delete", "DELETE", "/articles/1", "", true, http.StatusOK},
		{"get deleted", "GET", "/articles/1", "", false, http.StatusNotFound},
	}
	for _, tt := range tests {
		status, body := do(t, srv, tt.method, tt.path, tt.body, tt.authed)
		if status != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.want, status, body)
		}
	}
}

func TestCreateIgnoresClientID(t *testing.T) {
	_, srv := testServer(t)

	status, body := do(t, srv, "POST", "/articles", newArticle, true)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var got articleresponse.ArticleResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID == 77 {
		t.Error("client supplied id was stored")
	}
	if got.IsProcessed || got.CreatedAt.IsZero() {
		t.Errorf("expected store defaults, got %+v", got.Article)
	}
}

func TestListPageShape(t *testing.T) {
	f, srv := testServer(t)
	for i := 1; i <= 3; i++ {
		f.addArticle(t, i)
	}

	status, body := do(t, srv, "GET", "/articles?page=2&limit=2", "", false)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	var page struct {
		Articles []json.RawMessage `json:"articles"`
		Total    int               `json:"total"`
		Page     int               `json:"page"`
		Limit    int               `json:"limit"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || page.Page != 2 || page.Limit != 2 || len(page.Articles) != 1 {
		t.Errorf("unexpected page %s", body)
	}
}
