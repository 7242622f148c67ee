package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/SergeyParamoshkin/newsportal/internal/cache"
	"github.com/SergeyParamoshkin/newsportal/internal/config"
)

func testApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Addr:         ":0",
		DiagAddr:     ":0",
		DatabasePath: filepath.Join(t.TempDir(), "app.db"),
		Cache:        config.CacheConfig{Backend: cache.BackendMemory, Timeout: time.Second},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.MinCost,
			LoginRate:  100,
			LoginBurst: 100,
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	a, err := NewApp(context.Background(), cfg, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	return a, srv
}

type client struct {
	t     *testing.T
	srv   *httptest.Server
	token string
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rd)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.srv.Client().Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}

	return resp.StatusCode
}

type articleBody struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type pageBody struct {
	Articles []articleBody `json:"articles"`
	Total    int           `json:"total"`
}

func TestRootAndPing(t *testing.T) {
	_, srv := testApp(t)

	for path, want := range map[string]string{"/": "root.", "/ping": "pong"} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(b) != want {
			t.Errorf("GET %s = %q, want %q", path, b, want)
		}
	}
}

func TestPortalFlow(t *testing.T) {
	_, srv := testApp(t)
	c := &client{t: t, srv: srv}

	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if status := c.do("POST", "/api/auth/register", map[string]string{
		"email": "editor@example.com", "password": "password123", "name": "Editor",
	}, &auth); status != http.StatusCreated {
		t.Fatalf("register: %d", status)
	}
	c.token = auth.Token

	var created articleBody
	status := c.do("POST", "/api/articles", map[string]interface{}{
		"title": "Markets rally", "content": "Stocks rose sharply.", "url": "https://news.example.com/markets",
		"publishedAt": "2024-05-01T09:00:00Z", "source": "Wire",
	}, &created)
	if status != http.StatusCreated || created.ID == 0 {
		t.Fatalf("create: %d %+v", status, created)
	}

	var page pageBody
	if status := c.do("GET", "/api/articles", nil, &page); status != http.StatusOK || page.Total != 1 {
		t.Fatalf("list: %d %+v", status, page)
	}

	var found pageBody
	if status := c.do("GET", "/api/articles/search?q=stocks", nil, &found); status != http.StatusOK || found.Total != 1 {
		t.Fatalf("search: %d %+v", status, found)
	}

	path := "/api/articles/" + jsonInt(created.ID)
	var got articleBody
	if status := c.do("GET", path, nil, &got); status != http.StatusOK || got.Title != "Markets rally" {
		t.Fatalf("get: %d %+v", status, got)
	}

	if status := c.do("PUT", path, map[string]string{"title": "Markets slump"}, nil); status != http.StatusOK {
		t.Fatalf("update: %d", status)
	}
	if c.do("GET", path, nil, &got); got.Title != "Markets slump" {
		t.Errorf("expected the cached article to be invalidated, got %q", got.Title)
	}
	if c.do("GET", "/api/articles/search?q=slump", nil, &found); found.Total != 1 {
		t.Errorf("expected search results to be invalidated, got %+v", found)
	}

	if status := c.do("POST", "/api/bookmarks", map[string]int64{"articleId": created.ID}, nil); status != http.StatusCreated {
		t.Fatalf("bookmark: %d", status)
	}
	if status := c.do("POST", "/api/bookmarks", map[string]int64{"articleId": created.ID}, nil); status != http.StatusConflict {
		t.Errorf("duplicate bookmark: %d", status)
	}
	var bookmarks []struct {
		ArticleID int64 `json:"articleId"`
	}
	if status := c.do("GET", "/api/bookmarks", nil, &bookmarks); status != http.StatusOK || len(bookmarks) != 1 {
		t.Fatalf("bookmarks: %d %+v", status, bookmarks)
	}

	if status := c.do("DELETE", path, nil, nil); status != http.StatusOK {
		t.Fatalf("delete: %d", status)
	}
	if status := c.do("GET", path, nil, nil); status != http.StatusNotFound {
		t.Errorf("deleted article: %d", status)
	}
	if c.do("GET", "/api/bookmarks", nil, &bookmarks); len(bookmarks) != 0 {
		t.Errorf("bookmark outlived its article: %+v", bookmarks)
	}
	if c.do("GET", "/api/articles", nil, &page); page.Total != 0 {
		t.Errorf("expected empty listing after delete, got %+v", page)
	}
}

func TestErrorBody(t *testing.T) {
	_, srv := testApp(t)
	c := &client{t: t, srv: srv}

	var body struct {
		Status string `json:"status"`
	}
	if status := c.do("GET", "/api/articles/12345", nil, &body); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if body.Status == "" {
		t.Error("expected a status message in the error body")
	}

	if status := c.do("POST", "/api/articles", map[string]string{"title": "x"}, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", status)
	}
}

func TestDiagFlush(t *testing.T) {
	a, srv := testApp(t)
	c := &client{t: t, srv: srv}

	var page pageBody
	c.do("GET", "/api/articles", nil, &page)

	diag := httptest.NewServer(a.DiagRouter())
	defer diag.Close()

	resp, err := diag.Client().Post(diag.URL+"/cache/flush", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Flushed int `json:"flushed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || out.Flushed != 1 {
		t.Errorf("expected one flushed entry, got %d %+v", resp.StatusCode, out)
	}

	metrics, err := diag.Client().Get(diag.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Errorf("metrics: %d", metrics.StatusCode)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), ServiceName+" ") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
