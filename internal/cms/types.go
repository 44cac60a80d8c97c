package cms

import (
	"net/url"
	"strconv"
)

// Image is a microCMS media field.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Category groups blog posts.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	PublishedAt string `json:"publishedAt"`
	RevisedAt   string `json:"revisedAt"`
}

// Blog is a published article.
type Blog struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Eyecatch    *Image     `json:"eyecatch,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
	PublishedAt string     `json:"publishedAt"`
	RevisedAt   string     `json:"revisedAt"`
}

// ListResponse is the envelope of every list endpoint.
type ListResponse[T any] struct {
	Contents   []T `json:"contents"`
	TotalCount int `json:"totalCount"`
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
}

// Query holds the content API's list and get parameters. Zero values are omitted.
type Query struct {
	Limit   int
	Offset  int
	Orders  string
	Q       string
	Fields  string
	IDs     string
	Filters string
	Depth   int
}

// Values encodes q; url.Values.Encode sorts by key so the result is stable
// and usable as a cache key.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Orders != "" {
		v.Set("orders", q.Orders)
	}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Fields != "" {
		v.Set("fields", q.Fields)
	}
	if q.IDs != "" {
		v.Set("ids", q.IDs)
	}
	if q.Filters != "" {
		v.Set("filters", q.Filters)
	}
	if q.Depth > 0 {
		v.Set("depth", strconv.Itoa(q.Depth))
	}
	return v
}

// QueryFromValues reads list parameters from an incoming request query.
func QueryFromValues(v url.Values) Query {
	q := Query{
		Orders:  v.Get("orders"),
		Q:       v.Get("q"),
		Fields:  v.Get("fields"),
		IDs:     v.Get("ids"),
		Filters: v.Get("filters"),
	}
	if n, err := strconv.Atoi(v.Get("limit")); err == nil && n > 0 && n <= 100 {
		q.Limit = n
	}
	if n, err := strconv.Atoi(v.Get("offset")); err == nil && n > 0 {
		q.Offset = n
	}
	if n, err := strconv.Atoi(v.Get("depth")); err == nil && n > 0 && n <= 3 {
		q.Depth = n
	}
	return q
}
