package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return s
}

func sampleArticle(url string, published time.Time) *model.Article {
	return &model.Article{
		Title:       "Title " + url,
		Content:     "Content for " + url,
		URL:         url,
		PublishedAt: published,
		Source:      "Wire",
	}
}

func mustCreateArticle(t *testing.T, s *Store, a *model.Article) *model.Article {
	t.Helper()
	created, err := s.CreateArticle(context.Background(), a)
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	return created
}

func mustCreateUser(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &model.User{Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("expected schema version %d, got %d", len(migrations), v)
	}
}

func TestOpenCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "deep", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestCreateArticleDefaults(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	s := testStore(t, WithClock(func() time.Time { return now }))

	a := mustCreateArticle(t, s, sampleArticle("https://x/a", now.Add(-time.Hour)))
	if a.ID == 0 {
		t.Error("expected id to be assigned")
	}
	if a.IsProcessed {
		t.Error("expected processed flag to default to false")
	}
	if !a.CreatedAt.Equal(now) || !a.UpdatedAt.Equal(now) {
		t.Errorf("expected timestamps %v, got created=%v updated=%v", now, a.CreatedAt, a.UpdatedAt)
	}

	got, err := s.GetArticle(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("stored article mismatch (-created +got):\n%s", diff)
	}
}

func TestDuplicateURLConflict(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	mustCreateArticle(t, s, sampleArticle("https://x/a", now))
	_, err := s.CreateArticle(context.Background(), sampleArticle("https://x/a", now))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDuplicateEmailConflict(t *testing.T) {
	s := testStore(t)

	mustCreateUser(t, s, "a@example.com")
	_, err := s.CreateUser(context.Background(), &model.User{Email: "a@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Emails match exactly; a different case is a different account.
	if _, err := s.CreateUser(context.Background(), &model.User{Email: "A@example.com", PasswordHash: "x"}); err != nil {
		t.Errorf("expected differently-cased email to be accepted, got %v", err)
	}
}

func TestGetMissingArticle(t *testing.T) {
	s := testStore(t)

	_, err := s.GetArticle(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListArticlesNewestFirst(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	mustCreateArticle(t, s, sampleArticle("https://x/old", now.Add(-48*time.Hour)))
	mustCreateArticle(t, s, sampleArticle("https://x/new", now.Add(-1*time.Hour)))
	mustCreateArticle(t, s, sampleArticle("https://x/mid", now.Add(-2*time.Hour)))

	page, err := s.ListArticles(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("expected total 3, got %d", page.Total)
	}
	if len(page.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(page.Articles))
	}
	if page.Articles[0].URL != "https://x/new" || page.Articles[1].URL != "https://x/mid" {
		t.Errorf("unexpected order: %s, %s", page.Articles[0].URL, page.Articles[1].URL)
	}

	page, err = s.ListArticles(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page.Articles) != 1 || page.Articles[0].URL != "https://x/old" {
		t.Errorf("expected only the oldest article on page 2, got %+v", page.Articles)
	}
}

func TestListEmpty(t *testing.T) {
	s := testStore(t)

	page, err := s.ListArticles(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 || page.Articles == nil || len(page.Articles) != 0 {
		t.Errorf("expected empty non-nil page, got %+v", page)
	}
}

func TestListPagePastOffsetRange(t *testing.T) {
	s := testStore(t)
	mustCreateArticle(t, s, sampleArticle("https://example.com/only", time.Now()))

	page, err := s.ListArticles(context.Background(), math.MaxInt/100+2, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Articles) != 0 {
		t.Errorf("expected no rows beyond the last page, got %+v", page)
	}
}

func TestSearchArticles(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	a := sampleArticle("https://x/go", now)
	a.Title = "Go 1.25 released"
	mustCreateArticle(t, s, a)

	b := sampleArticle("https://x/rust", now.Add(-time.Hour))
	b.Summary = "Compared with GO generics"
	mustCreateArticle(t, s, b)

	mustCreateArticle(t, s, sampleArticle("https://x/other", now))

	page, err := s.SearchArticles(context.Background(), "go", 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 matches, got %d", page.Total)
	}
	if page.Articles[0].URL != "https://x/go" {
		t.Errorf("expected newest match first, got %s", page.Articles[0].URL)
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	a := sampleArticle("https://x/pct", now)
	a.Title = "Rates up 5% today"
	mustCreateArticle(t, s, a)
	mustCreateArticle(t, s, sampleArticle("https://x/plain", now))

	page, err := s.SearchArticles(context.Background(), "%", 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected literal %% to match one article, got %d", page.Total)
	}
}

func TestUpdateArticle(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := testStore(t, WithClock(func() time.Time { return clock }))

	a := mustCreateArticle(t, s, sampleArticle("https://x/a", clock))

	clock = clock.Add(time.Minute)
	updated, err := s.UpdateArticle(context.Background(), a.ID, func(a *model.Article) error {
		a.Title = "T2"
		a.IsProcessed = true
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "T2" || !updated.IsProcessed {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", a.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(clock) {
		t.Errorf("expected updated_at %v, got %v", clock, updated.UpdatedAt)
	}

	// A clock step backwards must not move updated_at backwards.
	clock = clock.Add(-time.Hour)
	again, err := s.UpdateArticle(context.Background(), a.ID, func(a *model.Article) error {
		a.Title = "T3"
		return nil
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if again.UpdatedAt.Before(updated.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", updated.UpdatedAt, again.UpdatedAt)
	}
}

func TestUpdateArticleURLConflict(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	mustCreateArticle(t, s, sampleArticle("https://x/a", now))
	b := mustCreateArticle(t, s, sampleArticle("https://x/b", now))

	_, err := s.UpdateArticle(context.Background(), b.ID, func(a *model.Article) error {
		a.URL = "https://x/a"
		return nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := s.GetArticle(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.URL != "https://x/b" {
		t.Errorf("failed update leaked: url=%s", got.URL)
	}
}

func TestUpdateMissingArticle(t *testing.T) {
	s := testStore(t)

	_, err := s.UpdateArticle(context.Background(), 7, func(*model.Article) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := testStore(t)
	u := mustCreateUser(t, s, "u@example.com")

	updated, err := s.UpdateUser(context.Background(), u.ID, func(u *model.User) error {
		u.Name = "New Name"
		u.Email = "ignored@example.com"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("expected name to change, got %q", updated.Name)
	}
	if updated.Email != "u@example.com" {
		t.Errorf("email must not change, got %q", updated.Email)
	}

	byEmail, err := s.GetUserByEmail(context.Background(), "u@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("expected user %d, got %d", u.ID, byEmail.ID)
	}
}

func TestBookmarkMissingArticle(t *testing.T) {
	s := testStore(t)
	u := mustCreateUser(t, s, "b@example.com")

	_, err := s.CreateBookmark(context.Background(), u.ID, 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no bookmark rows, got %d", n)
	}
}

func TestBookmarkMissingUser(t *testing.T) {
	s := testStore(t)
	a := mustCreateArticle(t, s, sampleArticle("https://x/a", time.Now()))

	_, err := s.CreateBookmark(context.Background(), 999, a.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s := testStore(t)

	// Bypass CreateBookmark's checks to reach the constraint itself.
	_, err := s.db.Exec(`INSERT INTO bookmarks (user_id, article_id, created_at) VALUES (1, 1, ?)`, dbTime(time.Now()))
	if !errors.Is(classify(err), ErrNotFound) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
}

func TestBookmarkLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "c@example.com")
	a := mustCreateArticle(t, s, sampleArticle("https://x/a", time.Now()))

	b, err := s.CreateBookmark(ctx, u.ID, a.ID)
	if err != nil {
		t.Fatalf("create bookmark: %v", err)
	}
	if b.UserID != u.ID || b.ArticleID != a.ID {
		t.Errorf("unexpected bookmark %+v", b)
	}

	if _, err := s.CreateBookmark(ctx, u.ID, a.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected duplicate bookmark conflict, got %v", err)
	}

	list, err := s.ListBookmarks(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Article == nil || list[0].Article.URL != a.URL {
		t.Fatalf("unexpected bookmarks %+v", list)
	}

	if err := s.DeleteBookmark(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteBookmark(ctx, u.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteArticleCascadesBookmarks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "d@example.com")
	a := mustCreateArticle(t, s, sampleArticle("https://x/a", time.Now()))

	if _, err := s.CreateBookmark(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("create bookmark: %v", err)
	}
	if _, err := s.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatalf("delete article: %v", err)
	}

	n, err := s.CountBookmarks(ctx, a.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected bookmarks to be removed with the article, got %d", n)
	}
	if _, err := s.GetArticle(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected article to be gone, got %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	res, err := s.Seed(ctx, "hash")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Users != 1 || res.Articles != 3 {
		t.Errorf("unexpected first seed result %+v", res)
	}

	res, err = s.Seed(ctx, "hash")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if res.Users != 0 || res.Articles != 0 {
		t.Errorf("expected nothing inserted on second seed, got %+v", res)
	}
}

func TestClassifyPassesThroughContextErrors(t *testing.T) {
	if err := classify(context.Canceled); !errors.Is(err, context.Canceled) || errors.Is(err, ErrUnavailable) {
		t.Errorf("expected context.Canceled untouched, got %v", err)
	}
	if err := classify(sql.ErrConnDone); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClosedStoreUnavailable(t *testing.T) {
	s := testStore(t)
	s.Close()

	_, err := s.ListArticles(context.Background(), 1, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
