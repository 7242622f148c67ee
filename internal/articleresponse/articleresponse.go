package articleresponse

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/newsportal/internal/model"
)

// ArticleResponse is the response payload for the Article data model.
//
// In the ArticleResponse object, first a Render() is called on itself,
// then the next field, and so on, all the way down the tree.
// Render is called in top-down order, like a http handler middleware chain.
type ArticleResponse struct {
	*model.Article
}

func NewArticleResponse(article *model.Article) *ArticleResponse {
	return &ArticleResponse{Article: article}
}

func (rd *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ArticlePageResponse wraps a listing or search page.
type ArticlePageResponse struct {
	Articles []*ArticleResponse `json:"articles"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
}

func NewArticlePageResponse(page *model.ArticlePage) *ArticlePageResponse {
	resp := &ArticlePageResponse{
		Articles: make([]*ArticleResponse, 0, len(page.Articles)),
		Total:    page.Total,
		Page:     page.Page,
		Limit:    page.Limit,
	}
	for _, article := range page.Articles {
		resp.Articles = append(resp.Articles, NewArticleResponse(article))
	}

	return resp
}

func (rd *ArticlePageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	for _, a := range rd.Articles {
		if err := a.Render(w, r); err != nil {
			return err
		}
	}

	return nil
}

// BookmarkResponse carries a bookmark and, when loaded, its article.
type BookmarkResponse struct {
	*model.Bookmark
}

func NewBookmarkResponse(b *model.Bookmark) *BookmarkResponse {
	return &BookmarkResponse{Bookmark: b}
}

func (rd *BookmarkResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewBookmarkListResponse(bookmarks []*model.Bookmark) []render.Renderer {
	list := []render.Renderer{}
	for _, b := range bookmarks {
		list = append(list, NewBookmarkResponse(b))
	}

	return list
}
