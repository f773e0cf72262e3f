// Package collyscraper implements the page scraper using gocolly.
package collyscraper

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Scraper implements pipeline.PageScraper using the Colly collector with
// goquery extraction.
type Scraper struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Scraper.
func New(cfg Config, logger *zap.Logger) *Scraper {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Scraper{cfg: cfg, base: c, logger: logger}
}

// FetchPage fetches a single URL and extracts its article content.
func (s *Scraper) FetchPage(ctx context.Context, pageURL string) (pipeline.Page, error) {
	collector := s.newCollector()

	var (
		page     pipeline.Page
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		p, err := extractPage(r.Request.URL.String(), r.Body)
		if err != nil {
			fetchErr = err
			return
		}
		page = p
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = &pipeline.PlatformError{StatusCode: status, Message: err.Error()}
	})

	if err := s.runCollector(ctx, collector, pageURL); err != nil {
		return pipeline.Page{}, &pipeline.DiscoveryError{URL: pageURL, Err: err}
	}
	if fetchErr != nil {
		return pipeline.Page{}, &pipeline.DiscoveryError{URL: pageURL, Err: fetchErr}
	}
	return page, nil
}

// Crawl visits up to maxPages pages on the base URL's host, following
// same-host links breadth-first from the start page.
func (s *Scraper) Crawl(ctx context.Context, baseURL string, maxPages int) ([]pipeline.Page, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	collector := s.newCollector()
	collector.AllowedDomains = []string{parsed.Hostname()}

	var (
		pages    []pipeline.Page
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if len(pages) >= maxPages {
			return
		}
		page, err := extractPage(r.Request.URL.String(), r.Body)
		if err != nil {
			s.logger.Debug("skipping unparsable page",
				zap.String("url", r.Request.URL.String()),
				zap.Error(err),
			)
			return
		}
		pages = append(pages, page)
	})
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if len(pages) >= maxPages {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Visit errors (already visited, off-domain, bad scheme) only
		// prune this branch of the crawl.
		_ = e.Request.Visit(link)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if fetchErr == nil {
			fetchErr = err
		}
	})

	if err := s.runCollector(ctx, collector, baseURL); err != nil {
		return nil, &pipeline.DiscoveryError{URL: baseURL, Err: err}
	}
	if len(pages) == 0 && fetchErr != nil {
		return nil, &pipeline.DiscoveryError{URL: baseURL, Err: fetchErr}
	}

	s.logger.Info("crawl completed",
		zap.String("base_url", baseURL),
		zap.Int("pages", len(pages)),
		zap.Int("max_pages", maxPages),
	)

	return pages, nil
}

func (s *Scraper) newCollector() *colly.Collector {
	collector := s.base.Clone()
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	timeout := s.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = false
	return collector
}

func (s *Scraper) runCollector(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}

// extractPage pulls article fields out of an HTML document.
func extractPage(pageURL string, body []byte) (pipeline.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = og
	}

	summary, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if summary == "" {
		summary, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	author, _ := doc.Find(`meta[name="author"]`).Attr("content")
	if author == "" {
		author, _ = doc.Find(`meta[property="og:site_name"]`).Attr("content")
	}

	var publishedAt *time.Time
	if raw, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			utc := t.UTC()
			publishedAt = &utc
		}
	}

	// Article body: prefer paragraphs inside article/main containers, fall
	// back to all paragraphs.
	container := doc.Find("article p, main p")
	if container.Length() == 0 {
		container = doc.Find("p")
	}
	var blocks []string
	container.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	html, _ := doc.Html()

	return pipeline.Page{
		URL:         pageURL,
		Title:       title,
		Text:        strings.Join(blocks, "\n"),
		HTML:        html,
		Summary:     strings.TrimSpace(summary),
		Author:      strings.TrimSpace(author),
		PublishedAt: publishedAt,
	}, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
