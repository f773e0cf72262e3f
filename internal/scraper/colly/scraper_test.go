package collyscraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Fallback title</title>
  <meta property="og:title" content="Widget teardown">
  <meta name="description" content="A close look at the widget.">
  <meta name="author" content="Sam Writer">
  <meta property="article:published_time" content="2026-03-09T08:30:00Z">
</head>
<body>
  <article>
    <p>First paragraph with enough words to count as a block of text.</p>
    <p>Second paragraph continuing the analysis in reasonable depth.</p>
  </article>
</body>
</html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="/posts/one">one</a>
			<a href="/posts/two">two</a>
			<a href="/posts/three">three</a>
		</body></html>`)
	})
	for _, p := range []string{"one", "two", "three"} {
		path := "/posts/" + p
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, articleHTML)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper() *Scraper {
	return New(Config{UserAgent: "contentpipe-test", Timeout: 5 * time.Second}, zap.NewNop())
}

func TestFetchPageExtractsFields(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := newTestScraper()

	page, err := s.FetchPage(context.Background(), srv.URL+"/posts/one")
	require.NoError(t, err)

	require.Equal(t, "Widget teardown", page.Title)
	require.Equal(t, "A close look at the widget.", page.Summary)
	require.Equal(t, "Sam Writer", page.Author)
	require.NotNil(t, page.PublishedAt)
	require.Equal(t, time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC), *page.PublishedAt)
	require.Contains(t, page.Text, "First paragraph")
	require.Contains(t, page.Text, "Second paragraph")
}

func TestFetchPageNotFound(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := newTestScraper()

	_, err := s.FetchPage(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
}

func TestCrawlBounded(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := newTestScraper()

	pages, err := s.Crawl(context.Background(), srv.URL+"/", 2)
	require.NoError(t, err)
	require.Len(t, pages, 2)
}

func TestCrawlVisitsLinkedPages(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := newTestScraper()

	pages, err := s.Crawl(context.Background(), srv.URL+"/", 10)
	require.NoError(t, err)
	// Listing page plus three posts.
	require.Len(t, pages, 4)

	urls := make(map[string]bool, len(pages))
	for _, p := range pages {
		urls[p.URL] = true
	}
	require.True(t, urls[srv.URL+"/posts/one"])
	require.True(t, urls[srv.URL+"/posts/three"])
}

func TestCrawlCanceled(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprint(w, articleHTML)
	}))
	t.Cleanup(slow.Close)

	s := newTestScraper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Crawl(ctx, slow.URL+"/", 10)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
