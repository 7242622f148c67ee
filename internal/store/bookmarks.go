package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

// CreateBookmark links userID to articleID. Both rows must exist; the checks
// and the insert share one transaction so a failed call leaves nothing
// behind.
func (s *Store) CreateBookmark(ctx context.Context, userID, articleID int64) (*model.Bookmark, error) {
	defer s.observe(ctx, "create_bookmark", time.Now())

	var b model.Bookmark
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "users", userID); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		if err := exists(ctx, tx, "articles", articleID); err != nil {
			return fmt.Errorf("article %d: %w", articleID, err)
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO bookmarks (user_id, article_id, created_at) VALUES (?, ?, ?)
			RETURNING id, user_id, article_id, created_at`,
			userID, articleID, dbTime(s.timestamp())).Scan(&b.ID, &b.UserID, &b.ArticleID, ts(&b.CreatedAt))
		return classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("bookmarking article %d: %w", articleID, err)
	}
	return &b, nil
}

func exists(ctx context.Context, tx *sql.Tx, table string, id int64) error {
	var one int
	// table is always a literal from this package.
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one) //nolint:gosec
	return classify(err)
}

// ListBookmarks returns the user's bookmarks with their articles, newest
// bookmark first.
func (s *Store) ListBookmarks(ctx context.Context, userID int64) ([]*model.Bookmark, error) {
	defer s.observe(ctx, "list_bookmarks", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.article_id, b.created_at,
			a.id, a.title, a.content, a.summary, a.url, a.published_at, a.source, a.category, a.is_processed, a.created_at, a.updated_at
		FROM bookmarks b JOIN articles a ON a.id = b.article_id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", classify(err))
	}
	defer rows.Close()

	bookmarks := []*model.Bookmark{}
	for rows.Next() {
		var (
			b                 model.Bookmark
			a                 model.Article
			summary, category sql.NullString
		)
		err := rows.Scan(&b.ID, &b.UserID, &b.ArticleID, ts(&b.CreatedAt),
			&a.ID, &a.Title, &a.Content, &summary, &a.URL, ts(&a.PublishedAt), &a.Source, &category,
			&a.IsProcessed, ts(&a.CreatedAt), ts(&a.UpdatedAt))
		if err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", classify(err))
		}
		a.Summary, a.Category = summary.String, category.String
		b.Article = &a
		bookmarks = append(bookmarks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", classify(err))
	}
	return bookmarks, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, userID, articleID int64) error {
	defer s.observe(ctx, "delete_bookmark", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = ? AND article_id = ?`, userID, articleID)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", classify(err))
	}
	if n == 0 {
		return fmt.Errorf("bookmark for article %d: %w", articleID, ErrNotFound)
	}
	return nil
}

// CountBookmarks reports how many bookmarks reference articleID.
func (s *Store) CountBookmarks(ctx context.Context, articleID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks WHERE article_id = ?`, articleID).Scan(&n)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}
