package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

const (
	websiteSourceID  = "website"
	websiteHitLimit  = 5
	websiteQuerySalt = " portfolio"
)

var blogMarkers = []string{"/blog", "/posts", "/articles", "/writing"}
var portfolioMarkers = []string{"/projects", "/portfolio", "/work"}

// Website is the best-effort personal-site discovery source. It queries an
// HTML search endpoint, follows the top result links and extracts site
// metadata from the pages themselves.
type Website struct {
	SearchURL  string
	HTTPClient *http.Client

	demo   bool
	logger *zap.Logger
}

// NewWebsite creates the personal-site adapter. searchURL is the HTML search
// endpoint used for discovery.
func NewWebsite(searchURL string, demo bool, logger *zap.Logger) *Website {
	return &Website{
		SearchURL: searchURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		demo:   demo,
		logger: logger,
	}
}

func (w *Website) id() string { return websiteSourceID }

func (w *Website) healthy(ctx context.Context) bool {
	if w.demo {
		return true
	}
	return w.SearchURL != ""
}

func (w *Website) fetch(ctx context.Context, job *candidate.JobSpec, acquire func(context.Context) error) ([]candidate.RawRecord, error) {
	if w.demo {
		return demoRecords(websiteSourceID, job), nil
	}

	links, err := w.discover(ctx, query(job)+websiteQuerySalt)
	if err != nil {
		return nil, err
	}

	var records []candidate.RawRecord
	for _, link := range links {
		if len(records) >= websiteHitLimit {
			break
		}

		if err := acquire(ctx); err != nil {
			return nil, err
		}

		rec, err := w.inspect(ctx, link)
		if err != nil {
			w.logger.Debug("site inspection failed", zap.String("url", link), zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}

	return records, nil
}

// discover runs the search query and collects external result links.
func (w *Website) discover(ctx context.Context, q string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.SearchURL, nil)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("q", q)
	req.URL.RawQuery = values.Encode()
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ThrottleError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	searchHost := req.URL.Host
	seen := map[string]bool{}
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		u, err := url.Parse(href)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Host == searchHost {
			return
		}
		u.Fragment = ""
		link := u.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	if len(links) > websiteHitLimit*2 {
		links = links[:websiteHitLimit*2]
	}
	return links, nil
}

// inspect fetches one site and extracts its metadata.
func (w *Website) inspect(ctx context.Context, link string) (*candidate.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse site: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	meta := candidate.WebsiteMeta{
		URL:       link,
		SiteTitle: title,
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		for _, marker := range blogMarkers {
			if strings.Contains(lower, marker) {
				meta.HasBlog = true
			}
		}
		for _, marker := range portfolioMarkers {
			if strings.Contains(lower, marker) {
				meta.HasPortfolio = true
			}
		}
	})

	seen := map[string]bool{}
	doc.Find("h1, h2").Each(func(_ int, s *goquery.Selection) {
		topic := strings.ToLower(strings.TrimSpace(s.Text()))
		if topic != "" && len(topic) < 60 && !seen[topic] && len(meta.Topics) < 8 {
			seen[topic] = true
			meta.Topics = append(meta.Topics, topic)
		}
	})

	// The site title doubles as the best-effort owner name ("Jane Doe —
	// Software Engineer" style titles are the common case).
	name := title
	for _, sep := range []string{"|", "—", "–", "-", ":"} {
		if idx := strings.Index(name, sep); idx > 0 {
			name = name[:idx]
		}
	}

	return &candidate.RawRecord{
		SourceID:  websiteSourceID,
		FetchedAt: time.Now().UTC(),
		Profile: candidate.RawProfile{
			Name:       strings.TrimSpace(name),
			ProfileURL: link,
			Website:    &meta,
		},
	}, nil
}
