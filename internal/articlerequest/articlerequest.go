package articlerequest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

var validate = validator.New()

// ArticleRequest is the request payload for ingesting an Article.
//
// Request and response payloads are kept apart from the data model so the
// server decides which fields a client may set: id and timestamps are
// always assigned by the store.
type ArticleRequest struct {
	Title       string    `json:"title" validate:"required,max=500"`
	Content     string    `json:"content" validate:"required"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url" validate:"required,url,max=1000"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source" validate:"required,max=100"`
	Category    string    `json:"category,omitempty" validate:"max=100"`
	IsProcessed bool      `json:"isProcessed"`

	ProtectedID int64 `json:"id"` // override 'id' json to have more control
}

// Bind runs after the JSON body is decoded.
func (a *ArticleRequest) Bind(r *http.Request) error {
	a.ProtectedID = 0 // unset the protected ID
	a.Title = strings.TrimSpace(a.Title)
	a.URL = strings.TrimSpace(a.URL)
	a.Source = strings.TrimSpace(a.Source)
	a.Category = strings.TrimSpace(a.Category)

	if err := validate.Struct(a); err != nil {
		return err
	}
	if a.PublishedAt.IsZero() {
		return errors.New("publishedAt is required")
	}

	return nil
}

func (a *ArticleRequest) Article() *model.Article {
	return &model.Article{
		Title:       a.Title,
		Content:     a.Content,
		Summary:     a.Summary,
		URL:         a.URL,
		PublishedAt: a.PublishedAt.UTC(),
		Source:      a.Source,
		Category:    a.Category,
		IsProcessed: a.IsProcessed,
	}
}

// ArticlePatch is the request payload for updating an Article. Absent
// fields are left unchanged.
type ArticlePatch struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=500"`
	Content     *string    `json:"content" validate:"omitempty,min=1"`
	Summary     *string    `json:"summary"`
	URL         *string    `json:"url" validate:"omitempty,url,max=1000"`
	PublishedAt *time.Time `json:"publishedAt"`
	Source      *string    `json:"source" validate:"omitempty,min=1,max=100"`
	Category    *string    `json:"category" validate:"omitempty,max=100"`
	IsProcessed *bool      `json:"isProcessed"`
}

func (p *ArticlePatch) Bind(r *http.Request) error {
	if p.PublishedAt != nil && p.PublishedAt.IsZero() {
		return errors.New("publishedAt cannot be zero")
	}
	for name, v := range map[string]*string{"title": p.Title, "content": p.Content, "source": p.Source, "url": p.URL} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return errors.New(name + " cannot be empty")
		}
	}

	return validate.Struct(p)
}

// Apply copies the fields present in p onto a.
func (p *ArticlePatch) Apply(a *model.Article) error {
	if p.Title != nil {
		a.Title = strings.TrimSpace(*p.Title)
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.URL != nil {
		a.URL = strings.TrimSpace(*p.URL)
	}
	if p.PublishedAt != nil {
		a.PublishedAt = p.PublishedAt.UTC()
	}
	if p.Source != nil {
		a.Source = strings.TrimSpace(*p.Source)
	}
	if p.Category != nil {
		a.Category = strings.TrimSpace(*p.Category)
	}
	if p.IsProcessed != nil {
		a.IsProcessed = *p.IsProcessed
	}

	return nil
}
