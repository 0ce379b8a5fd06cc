package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// infoKeywords mark paths likely to describe the business.
var infoKeywords = []string{"about", "service", "product", "contact", "pricing", "faq", "location", "team"}

// candidatePaths are tried on every domain in this order.
var candidatePaths = []string{
	"/about", "/about-us", "/services", "/products", "/contact",
	"/pricing", "/faq", "/locations", "/team",
}

var spaceRe = regexp.MustCompile(`\s+`)

// pageText is the readable content of one HTML document.
type pageText struct {
	Title       string
	Description string
	Text        string
}

// extractText drops non-content elements and returns the title, meta
// description, and collapsed visible text.
func extractText(doc *goquery.Document) pageText {
	title := collapse(doc.Find("title").First().Text())
	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	if desc == "" {
		desc, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	}

	body := doc.Find("body")
	body.Find("script, style, noscript, nav, footer, svg, iframe, form").Remove()

	var parts []string
	body.Find("h1, h2, h3, h4, p, li, td, address, blockquote").Each(func(_ int, s *goquery.Selection) {
		// Leaf-ish blocks only; nested matches would repeat text.
		if s.Find("p, li, h1, h2, h3, h4").Length() > 0 {
			return
		}
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		if t := collapse(body.Text()); t != "" {
			parts = append(parts, t)
		}
	}

	return pageText{
		Title:       title,
		Description: collapse(desc),
		Text:        strings.Join(dedupeLines(parts), "\n"),
	}
}

// infoLinks returns same-site links from doc whose path contains one of the
// informational keywords, resolved against base, in document order.
func infoLinks(doc *goquery.Document, base *url.URL) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !sameSite(abs.Host, base.Host) || (abs.Scheme != "http" && abs.Scheme != "https") {
			return
		}
		path := strings.ToLower(abs.Path)
		if path == "" || path == "/" || !hasInfoKeyword(path) {
			return
		}
		abs.Fragment = ""
		abs.RawQuery = ""
		key := abs.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	})
	return out
}

func hasInfoKeyword(path string) bool {
	for _, k := range infoKeywords {
		if strings.Contains(path, k) {
			return true
		}
	}
	return false
}

// sameSite treats "www.example.com" and "example.com" as one site.
func sameSite(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func dedupeLines(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
