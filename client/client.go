// Package client is a Go client for the newsportal HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	http.Client
	Addr string
	// Token is sent as a bearer token when set. Register and Login set it.
	Token string
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Source      string    `json:"source"`
	Category    string    `json:"category,omitempty"`
	IsProcessed bool      `json:"isProcessed"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type ArticlePage struct {
	Articles []*Article `json:"articles"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}

// ArticlePatch carries the fields to change; nil fields are left alone.
type ArticlePatch struct {
	Title       *string    `json:"title,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Summary     *string    `json:"summary,omitempty"`
	URL         *string    `json:"url,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Category    *string    `json:"category,omitempty"`
	IsProcessed *bool      `json:"isProcessed,omitempty"`
}

type Bookmark struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ArticleID int64     `json:"articleId"`
	CreatedAt time.Time `json:"createdAt"`
	Article   *Article  `json:"article,omitempty"`
}

type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindInvalidRequest
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidRequest:
		return "invalid request"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unexpected"
	}
}

// Error is returned for every failed call. StatusCode is zero when the
// server could not be reached.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s (%d)", e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func kindOf(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return KindUnavailable
	default:
		return KindUnexpected
	}
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Addr+"/ping", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

type authResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	var out authResult
	err := c.call(ctx, http.MethodPost, "/api/auth/register", nil,
		map[string]string{"email": email, "password": password, "name": name}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token

	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out authResult
	err := c.call(ctx, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.Token = out.Token

	return out.User, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListArticles(ctx context.Context, page, limit int) (*ArticlePage, error) {
	var p ArticlePage
	if err := c.call(ctx, http.MethodGet, "/api/articles", pageQuery(page, limit), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) SearchArticles(ctx context.Context, query string, page, limit int) (*ArticlePage, error) {
	q := pageQuery(page, limit)
	q.Set("q", query)

	var p ArticlePage
	if err := c.call(ctx, http.MethodGet, "/api/articles/search", q, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetArticle(ctx context.Context, id int64) (*Article, error) {
	var a Article
	if err := c.call(ctx, http.MethodGet, articlePath(id), nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateArticle posts a. ID and timestamps in a are ignored by the server.
func (c *Client) CreateArticle(ctx context.Context, a *Article) (*Article, error) {
	var out Article
	if err := c.call(ctx, http.MethodPost, "/api/articles", nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id int64, patch *ArticlePatch) (*Article, error) {
	var out Article
	if err := c.call(ctx, http.MethodPut, articlePath(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id int64) (*Article, error) {
	var out Article
	if err := c.call(ctx, http.MethodDelete, articlePath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Bookmarks(ctx context.Context) ([]*Bookmark, error) {
	var out []*Bookmark
	if err := c.call(ctx, http.MethodGet, "/api/bookmarks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddBookmark(ctx context.Context, articleID int64) (*Bookmark, error) {
	var out Bookmark
	if err := c.call(ctx, http.MethodPost, "/api/bookmarks", nil, map[string]int64{"articleId": articleID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveBookmark(ctx context.Context, articleID int64) error {
	return c.call(ctx, http.MethodDelete, "/api/bookmarks/"+strconv.FormatInt(articleID, 10), nil, nil, nil)
}

func articlePath(id int64) string {
	return "/api/articles/" + strconv.FormatInt(id, 10)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// call sends in as JSON, decodes a 2xx body into out and turns anything
// else into an *Error.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := c.Addr + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Status
		if e.Error != "" {
			msg += " " + e.Error
		}

		return &Error{Kind: kindOf(resp.StatusCode), StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindUnexpected, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}
