// Package crawl fetches a bounded set of pages from a business website and
// combines their readable text.
package crawl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
)

const (
	maxBodyBytes    = 512 * 1024
	maxPageChars    = 20000
	pageConcurrency = 4
)

// Crawler fetches the homepage and likely informational pages of a domain.
type Crawler struct {
	http        *http.Client
	maxPages    int
	pageTimeout time.Duration
	userAgent   string

	// schemes are tried in order for the homepage.
	schemes []string
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Crawler) {
		c.http = hc
	}
}

// WithSchemes overrides the homepage scheme order.
func WithSchemes(schemes ...string) Option {
	return func(c *Crawler) {
		c.schemes = schemes
	}
}

// New creates a Crawler from crawl settings.
func New(cfg config.CrawlConfig, opts ...Option) *Crawler {
	c := &Crawler{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConnsPerHost: pageConcurrency,
			},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		maxPages:    cfg.MaxPages,
		pageTimeout: cfg.PageTimeout(),
		userAgent:   cfg.UserAgent,
		schemes:     []string{"https", "http"},
	}
	if c.maxPages <= 0 {
		c.maxPages = 8
	}
	if c.userAgent == "" {
		c.userAgent = "Mozilla/5.0 (compatible; VisibilityBot/1.0)"
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// fetched is one successfully retrieved page.
type fetched struct {
	summary model.PageSummary
	text    pageText
	links   []string
}

// Crawl retrieves up to maxPages pages from domain. Page failures are
// skipped; an unreachable domain yields a result with PageCount 0 and no
// error. An error is returned only when ctx ends.
func (c *Crawler) Crawl(ctx context.Context, domain string) (*model.CrawlResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("domain", domain))

	home, base := c.fetchHome(ctx, domain)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "crawl: homepage")
	}

	var pages []*fetched
	if home != nil {
		pages = append(pages, home)
	}

	if remaining := c.maxPages - len(pages); base != nil && remaining > 0 {
		candidates := c.candidates(base, home, remaining)
		slots := make([]*fetched, len(candidates))

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(pageConcurrency)
		for i, u := range candidates {
			g.Go(func() error {
				p, err := c.fetch(gCtx, u)
				if err != nil {
					log.Debug("crawl: page skipped", zap.String("url", u), zap.Error(err))
					return nil
				}
				slots[i] = p
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "crawl: pages")
		}

		seen := make(map[string]bool)
		if home != nil {
			seen[home.summary.URL] = true
		}
		for _, p := range slots {
			if len(pages) >= c.maxPages {
				break
			}
			if p == nil || seen[p.summary.URL] {
				continue
			}
			seen[p.summary.URL] = true
			pages = append(pages, p)
		}
	}

	result := combine(pages)
	log.Info("crawl: complete",
		zap.Int("page_count", result.PageCount),
		zap.Int("content_chars", len(result.Content)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return result, nil
}

// fetchHome tries each scheme until the host answers. It returns the page
// (nil if unusable) and the base URL to resolve candidates against (nil if
// the host never answered).
func (c *Crawler) fetchHome(ctx context.Context, domain string) (*fetched, *url.URL) {
	for _, scheme := range c.schemes {
		u := scheme + "://" + domain + "/"
		page, final, err := c.get(ctx, u)
		if final == nil {
			zap.L().Debug("crawl: homepage unreachable", zap.String("url", u), zap.Error(err))
			continue
		}
		if err != nil {
			zap.L().Debug("crawl: homepage unusable", zap.String("url", u), zap.Error(err))
		}
		return page, final
	}
	return nil, nil
}

// candidates lists homepage links that look informational followed by the
// fixed paths, oversampled to twice the remaining page budget since some 404.
func (c *Crawler) candidates(base *url.URL, home *fetched, remaining int) []string {
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}
	seen := map[string]bool{root.String() + "/": true}
	var out []string
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	if home != nil {
		for _, l := range home.links {
			add(l)
		}
	}
	for _, p := range candidatePaths {
		add(root.String() + p)
	}

	if limit := 2 * remaining; len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) (*fetched, error) {
	page, _, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// get fetches one page with its own timeout. final is the post-redirect URL
// whenever the server answered, even if the page itself is unusable.
func (c *Crawler) get(ctx context.Context, rawURL string) (*fetched, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, eris.Wrap(err, "crawl: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "crawl: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck
	final := resp.Request.URL

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, final, eris.Wrap(err, "crawl: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, final, eris.Errorf("crawl: blocked (%s)", kind)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, final, eris.Errorf("crawl: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "text/html" && mt != "application/xhtml+xml" {
			return nil, final, eris.Errorf("crawl: content type %s", mt)
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, final, eris.Wrap(err, "crawl: parse html")
	}
	// Links first: text extraction removes nav elements.
	links := infoLinks(doc, final)
	text := extractText(doc)
	if text.Text == "" && text.Title == "" && text.Description == "" {
		return nil, final, eris.New("crawl: empty page")
	}
	text.Text = model.Truncate(text.Text, maxPageChars)

	return &fetched{
		summary: model.PageSummary{
			URL:        final.String(),
			Title:      text.Title,
			StatusCode: resp.StatusCode,
			Chars:      len([]rune(text.Text)),
		},
		text:  text,
		links: links,
	}, final, nil
}

// combine joins page texts into one blob. Page order follows retrieval slots,
// which downstream consumers do not depend on.
func combine(pages []*fetched) *model.CrawlResult {
	res := &model.CrawlResult{Pages: make([]model.PageSummary, 0, len(pages))}
	var b strings.Builder
	for _, p := range pages {
		res.Pages = append(res.Pages, p.summary)
		fmt.Fprintf(&b, "=== %s ===\n", p.summary.URL)
		if p.text.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", p.text.Title)
		}
		if p.text.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", p.text.Description)
		}
		b.WriteString(p.text.Text)
		b.WriteString("\n\n")
	}
	res.PageCount = len(pages)
	res.Content = strings.TrimSpace(b.String())
	return res
}
