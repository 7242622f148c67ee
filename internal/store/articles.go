package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

const articleColumns = `id, title, content, summary, url, published_at, source, category, is_processed, created_at, updated_at`

func scanArticle(row scanner) (*model.Article, error) {
	var (
		a                 model.Article
		summary, category sql.NullString
	)
	err := row.Scan(&a.ID, &a.Title, &a.Content, &summary, &a.URL, ts(&a.PublishedAt),
		&a.Source, &category, &a.IsProcessed, ts(&a.CreatedAt), ts(&a.UpdatedAt))
	if err != nil {
		return nil, err
	}
	a.Summary = summary.String
	a.Category = category.String
	return &a, nil
}

// CreateArticle inserts a and returns the stored row. ID and timestamps are
// always assigned by the store.
func (s *Store) CreateArticle(ctx context.Context, a *model.Article) (*model.Article, error) {
	defer s.observe(ctx, "create_article", time.Now())

	now := s.timestamp()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, content, summary, url, published_at, source, category, is_processed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+articleColumns,
		a.Title, a.Content, nullString(a.Summary), a.URL, dbTime(a.PublishedAt),
		a.Source, nullString(a.Category), a.IsProcessed, dbTime(now), dbTime(now))

	created, err := scanArticle(row)
	if err != nil {
		return nil, fmt.Errorf("creating article %q: %w", a.URL, classify(err))
	}
	return created, nil
}

func (s *Store) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	defer s.observe(ctx, "get_article", time.Now())

	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err != nil {
		return nil, fmt.Errorf("article %d: %w", id, classify(err))
	}
	return a, nil
}

// UpdateArticle loads the article, lets mutate change it and writes the
// result back in one transaction. ID and created_at cannot be changed, and
// updated_at never moves backwards.
func (s *Store) UpdateArticle(ctx context.Context, id int64, mutate func(*model.Article) error) (*model.Article, error) {
	defer s.observe(ctx, "update_article", time.Now())

	var updated *model.Article
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanArticle(tx.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id))
		if err != nil {
			return classify(err)
		}
		if err := mutate(current); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE articles SET
				title = ?, content = ?, summary = ?, url = ?, published_at = ?,
				source = ?, category = ?, is_processed = ?,
				updated_at = MAX(updated_at, ?)
			WHERE id = ?
			RETURNING `+articleColumns,
			current.Title, current.Content, nullString(current.Summary), current.URL, dbTime(current.PublishedAt),
			current.Source, nullString(current.Category), current.IsProcessed,
			dbTime(s.timestamp()), id)

		updated, err = scanArticle(row)
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("updating article %d: %w", id, err)
	}
	return updated, nil
}

// DeleteArticle removes the article; its bookmarks go with it.
func (s *Store) DeleteArticle(ctx context.Context, id int64) (*model.Article, error) {
	defer s.observe(ctx, "delete_article", time.Now())

	row := s.db.QueryRowContext(ctx, `DELETE FROM articles WHERE id = ? RETURNING `+articleColumns, id)
	a, err := scanArticle(row)
	if err != nil {
		return nil, fmt.Errorf("deleting article %d: %w", id, classify(err))
	}
	return a, nil
}

// ListArticles returns a page of articles, most recently published first.
func (s *Store) ListArticles(ctx context.Context, page, limit int) (*model.ArticlePage, error) {
	defer s.observe(ctx, "list_articles", time.Now())

	return s.queryPage(ctx, "", nil, page, limit)
}

// SearchArticles returns a page of articles whose title, content or summary
// contains query, case-insensitively for ASCII. Ordering matches
// ListArticles.
func (s *Store) SearchArticles(ctx context.Context, query string, page, limit int) (*model.ArticlePage, error) {
	defer s.observe(ctx, "search_articles", time.Now())

	pattern := "%" + escapeLike(query) + "%"
	where := `WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\'`
	return s.queryPage(ctx, where, []interface{}{pattern, pattern, pattern}, page, limit)
}

func (s *Store) queryPage(ctx context.Context, where string, args []interface{}, page, limit int) (*model.ArticlePage, error) {
	result := &model.ArticlePage{Articles: []*model.Article{}, Page: page, Limit: limit}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles `+where, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("counting articles: %w", classify(err))
	}

	if page < 1 || limit < 1 || page-1 > math.MaxInt/limit {
		return result, nil
	}
	offset := (page - 1) * limit
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles `+where+` ORDER BY published_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", classify(err))
		}
		result.Articles = append(result.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying articles: %w", classify(err))
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
