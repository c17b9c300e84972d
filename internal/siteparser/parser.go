package siteparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// SiteSummary is what the campaign agent learns about a client website
// during discovery.
type SiteSummary struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Headings    []string  `json:"headings,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	SocialLinks []string  `json:"social_links,omitempty"`
	ThemeColor  string    `json:"theme_color,omitempty"`
	LangGuess   string    `json:"lang_guess"`
	FetchedAt   time.Time `json:"fetched_at"`
}

const (
	maxHeadings    = 12
	maxExcerptLen  = 1200
	maxSocialLinks = 8
)

var socialHosts = []string{
	"instagram.com", "facebook.com", "linkedin.com", "x.com", "twitter.com",
	"tiktok.com", "youtube.com", "pinterest.com",
}

type Parser struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewParser(timeoutMS, maxRetries int, log *zap.Logger) *Parser {
	return &Parser{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
	}
}

// FetchAndParse downloads rawURL and summarizes it. A missing scheme is
// treated as https.
func (p *Parser) FetchAndParse(ctx context.Context, rawURL string) (*SiteSummary, error) {
	pageURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AgencyHubBot/1.0)")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := p.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
			continue
		}

		summary, err := Parse(io.LimitReader(resp.Body, 2<<20), pageURL)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return summary, nil
	}

	p.log.Warn("website fetch failed", zap.String("url", pageURL), zap.Error(lastErr))
	return nil, lastErr
}

// Parse summarizes an HTML document served from pageURL.
func Parse(r io.Reader, pageURL string) (*SiteSummary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	s := &SiteSummary{
		URL:       pageURL,
		Title:     collapse(doc.Find("title").First().Text()),
		FetchedAt: time.Now(),
	}

	doc.Find("meta").Each(func(_ int, m *goquery.Selection) {
		name := strings.ToLower(m.AttrOr("name", m.AttrOr("property", "")))
		content := collapse(m.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch name {
		case "description":
			s.Description = content
		case "og:description":
			if s.Description == "" {
				s.Description = content
			}
		case "og:title":
			if s.Title == "" {
				s.Title = content
			}
		case "keywords":
			for _, k := range strings.Split(content, ",") {
				if k = strings.TrimSpace(k); k != "" {
					s.Keywords = append(s.Keywords, k)
				}
			}
		case "theme-color":
			s.ThemeColor = content
		}
	})

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if text := collapse(h.Text()); text != "" {
			s.Headings = append(s.Headings, text)
		}
		return len(s.Headings) < maxHeadings
	})

	var body strings.Builder
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := collapse(p.Text())
		if len(text) < 40 {
			return true
		}
		if body.Len() > 0 {
			body.WriteString(" ")
		}
		body.WriteString(text)
		return body.Len() < maxExcerptLen
	})
	s.Excerpt = truncate(body.String(), maxExcerptLen)

	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		u, err := url.Parse(href)
		if err != nil || u.Host == "" || seen[href] || len(s.SocialLinks) >= maxSocialLinks {
			return
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		for _, sh := range socialHosts {
			if host == sh {
				seen[href] = true
				s.SocialLinks = append(s.SocialLinks, href)
				return
			}
		}
	})

	s.LangGuess = guessLanguage(s.Title + " " + s.Description + " " + s.Excerpt)
	return s, nil
}

// Text renders the summary as the short plain text handed to the model.
func (s *SiteSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\n", s.URL)
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	if len(s.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(s.Keywords, ", "))
	}
	if len(s.Headings) > 0 {
		fmt.Fprintf(&b, "Headings: %s\n", strings.Join(s.Headings, " | "))
	}
	if s.ThemeColor != "" {
		fmt.Fprintf(&b, "Theme color: %s\n", s.ThemeColor)
	}
	if len(s.SocialLinks) > 0 {
		fmt.Fprintf(&b, "Social: %s\n", strings.Join(s.SocialLinks, ", "))
	}
	fmt.Fprintf(&b, "Language: %s\n", s.LangGuess)
	if s.Excerpt != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", s.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}
	return u.String(), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func guessLanguage(text string) string {
	var cyrillic, latin, arabic, cjk, total int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			cjk++
		}
	}

	if total == 0 {
		return "unknown"
	}

	pct := func(n int) float64 { return float64(n) / float64(total) }
	switch {
	case pct(cyrillic) >= 0.3:
		return "ru"
	case pct(arabic) >= 0.3:
		return "ar"
	case pct(cjk) >= 0.3:
		return "zh"
	case pct(latin) >= 0.3:
		return "en"
	default:
		return "other"
	}
}
