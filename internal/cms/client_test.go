package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t     *testing.T
	calls atomic.Int32
	last  atomic.Pointer[http.Request]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.last.Store(r)
	if r.Header.Get("X-MICROCMS-API-KEY") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"X-MICROCMS-API-KEY header is invalid."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/blogs":
		_, _ = w.Write([]byte(`{"contents":[{"id":"post-1","title":"First","categories":[{"id":"cat-1","name":"Strategy"}]}],"totalCount":1,"offset":0,"limit":10}`))
	case "/blogs/post-1":
		_, _ = w.Write([]byte(`{"id":"post-1","title":"First","content":"<p>Hi</p>"}`))
	case "/categories":
		_, _ = w.Write([]byte(`{"contents":[{"id":"cat-1","name":"Strategy"}],"totalCount":1,"offset":0,"limit":10}`))
	case "/categories/cat-1":
		_, _ = w.Write([]byte(`{"id":"cat-1","name":"Strategy"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Content is not found."}`))
	}
}

func newTestClient(t *testing.T, slugField string) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, SlugField: slugField})
	require.NoError(t, err)
	return client, api
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{ServiceDomain: "example"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "k"})
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: "k", ServiceDomain: "momentworks"})
	require.NoError(t, err)
	assert.Equal(t, "https://momentworks.microcms.io/api/v1", c.baseURL)
}

func TestReaderGetBlogs(t *testing.T) {
	client, api := newTestClient(t, "")
	r := client.Reader()

	resp, err := r.GetBlogs(context.Background(), Query{Limit: 10, Orders: "-publishedAt", Q: "growth"})
	require.NoError(t, err)
	require.Len(t, resp.Contents, 1)
	assert.Equal(t, "First", resp.Contents[0].Title)
	assert.Equal(t, "Strategy", resp.Contents[0].Categories[0].Name)
	assert.Equal(t, "limit=10&orders=-publishedAt&q=growth", api.last.Load().URL.RawQuery)
}

func TestReaderGetByID(t *testing.T) {
	client, _ := newTestClient(t, "")
	r := client.Reader()

	blog, err := r.GetBlogByID(context.Background(), "post-1", Query{})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>", blog.Content)

	cat, err := r.GetCategoryByID(context.Background(), "cat-1", Query{})
	require.NoError(t, err)
	assert.Equal(t, "Strategy", cat.Name)

	cats, err := r.GetCategories(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, cats.TotalCount)

	_, err = r.GetBlogByID(context.Background(), "missing", Query{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Content is not found.", apiErr.Message)
}

func TestReaderRejectsBadKey(t *testing.T) {
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api)
	defer srv.Close()
	client, err := NewClient(Config{APIKey: "wrong", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Reader().GetBlogs(context.Background(), Query{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestReaderGetRecentBlogs(t *testing.T) {
	client, api := newTestClient(t, "")

	blogs, err := client.Reader().GetRecentBlogs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, blogs, 1)
	assert.Equal(t, "limit=3&orders=-publishedAt", api.last.Load().URL.RawQuery)
}

func TestReaderGetBlogBySlug(t *testing.T) {
	client, _ := newTestClient(t, "")
	r := client.Reader()

	blog, err := r.GetBlogBySlug(context.Background(), "post-1")
	require.NoError(t, err)
	require.NotNil(t, blog)
	assert.Equal(t, "post-1", blog.ID)

	blog, err = r.GetBlogBySlug(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, blog)
}

func TestReaderGetBlogBySlugField(t *testing.T) {
	client, api := newTestClient(t, "slug")

	blog, err := client.Reader().GetBlogBySlug(context.Background(), "first-post")
	require.NoError(t, err)
	require.NotNil(t, blog)
	assert.Equal(t, "/blogs", api.last.Load().URL.Path)
	assert.Equal(t, "slug[equals]first-post", api.last.Load().URL.Query().Get("filters"))
}

func TestReaderGetBlogsByCategory(t *testing.T) {
	client, api := newTestClient(t, "")

	_, err := client.Reader().GetBlogsByCategory(context.Background(), "cat-1", Query{Filters: "ignored", Limit: 5})
	require.NoError(t, err)
	q := api.last.Load().URL.Query()
	assert.Equal(t, "categories[contains]cat-1", q.Get("filters"))
	assert.Equal(t, "5", q.Get("limit"))
}
