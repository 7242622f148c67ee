package cache

import (
	"strconv"
	"strings"
	"time"
)

// Key prefixes, one per query shape. Ops tooling depends on these exact
// strings.
const (
	ArticlesPrefix = "articles:"
	ArticlePrefix  = "article:"
	SearchPrefix   = "search:"
)

// Staleness windows per query shape.
const (
	ListTTL    = 300 * time.Second
	ArticleTTL = 600 * time.Second
	SearchTTL  = 180 * time.Second
)

// ArticlesPageKey is the key of one page of the article listing.
func ArticlesPageKey(page, limit int) string {
	return ArticlesPrefix + "page:" + strconv.Itoa(page) + ":limit:" + strconv.Itoa(limit)
}

// ArticleKey is the key of a single article.
func ArticleKey(id int64) string {
	return ArticlePrefix + strconv.FormatInt(id, 10)
}

// SearchKey is the key of one page of search results. The query is
// percent-encoded so it can never contain the ':' separator.
func SearchKey(query string, page, limit int) string {
	return SearchPrefix + EncodeComponent(query) + ":page:" + strconv.Itoa(page) + ":limit:" + strconv.Itoa(limit)
}

const upperhex = "0123456789ABCDEF"

// EncodeComponent percent-encodes s the way JavaScript's encodeURIComponent
// does: every UTF-8 byte except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped.
func EncodeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
