package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

// DemoEmail and DemoPassword identify the account created by Seed.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password123"
)

// SeedArticles returns the demo articles, published relative to now.
func SeedArticles(now time.Time) []*model.Article {
	return []*model.Article{
		{
			Title:       "AI News Portal MVP Launch",
			Content:     "We are excited to announce the launch of our AI News Portal MVP. This platform aggregates news from various sources and provides AI-powered summaries.",
			Summary:     "AI News Portal MVP launched with news aggregation and AI summaries.",
			URL:         "https://example.com/ai-news-portal-launch",
			PublishedAt: now,
			Source:      "Tech Blog",
			Category:    "Technology",
			IsProcessed: true,
		},
		{
			Title:       "The Future of AI in News Media",
			Content:     "Artificial Intelligence is revolutionizing how we consume news. From automated summarization to personalized content delivery, AI is reshaping the media landscape.",
			Summary:     "AI is transforming news media through automated summarization and personalized content.",
			URL:         "https://example.com/future-ai-news",
			PublishedAt: now.Add(-24 * time.Hour),
			Source:      "AI Journal",
			Category:    "AI",
			IsProcessed: true,
		},
		{
			Title:       "React Query: Best Practices 2024",
			Content:     "React Query continues to be the go-to solution for server state management in React applications. Learn about the latest best practices and features.",
			Summary:     "Latest React Query best practices and features for 2024.",
			URL:         "https://example.com/react-query-best-practices",
			PublishedAt: now.Add(-48 * time.Hour),
			Source:      "React Weekly",
			Category:    "Development",
			IsProcessed: true,
		},
	}
}

// SeedResult counts the rows Seed inserted.
type SeedResult struct {
	Users    int
	Articles int
}

// Seed inserts the demo user and articles. Rows that already exist are
// skipped, so running it twice is harmless.
func (s *Store) Seed(ctx context.Context, passwordHash string) (SeedResult, error) {
	var res SeedResult

	_, err := s.CreateUser(ctx, &model.User{Email: DemoEmail, Name: "Demo User", PasswordHash: passwordHash})
	switch {
	case err == nil:
		res.Users++
	case !errors.Is(err, ErrConflict):
		return res, fmt.Errorf("seeding user: %w", err)
	}

	for _, a := range SeedArticles(s.timestamp()) {
		_, err := s.CreateArticle(ctx, a)
		switch {
		case err == nil:
			res.Articles++
		case !errors.Is(err, ErrConflict):
			return res, fmt.Errorf("seeding articles: %w", err)
		}
	}
	return res, nil
}
