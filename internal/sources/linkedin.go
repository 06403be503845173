package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

const (
	linkedinSourceID   = "linkedin"
	linkedinSearchPath = "/v1/profiles/search"
	linkedinPerPage    = 50
	defaultUserAgent   = "talent-sourcer (profile sourcing pipeline)"
)

// LinkedIn is the primary professional-network profile source.
type LinkedIn struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client

	token  string
	demo   bool
	logger *zap.Logger
}

// NewLinkedIn creates the primary profile adapter.
func NewLinkedIn(baseURL, token string, demo bool, logger *zap.Logger) *LinkedIn {
	return &LinkedIn{
		BaseURL:   baseURL,
		UserAgent: defaultUserAgent,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		demo:   demo,
		logger: logger,
	}
}

func (l *LinkedIn) id() string { return linkedinSourceID }

func (l *LinkedIn) healthy(ctx context.Context) bool {
	if l.demo {
		return true
	}
	return l.BaseURL != "" && l.token != ""
}

// profileSearchResponse mirrors the provider's paginated search payload.
type profileSearchResponse struct {
	Items []linkedinProfile `json:"items"`
	Found int               `json:"found"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
}

type linkedinProfile struct {
	Name       string                 `json:"name"`
	Headline   string                 `json:"headline"`
	Location   string                 `json:"location"`
	ProfileURL string                 `json:"profile_url"`
	Snippet    string                 `json:"snippet"`
	Experience []candidate.Experience `json:"experience"`
	Education  []candidate.Education  `json:"education"`
	Skills     []string               `json:"skills"`
}

func (l *LinkedIn) fetch(ctx context.Context, job *candidate.JobSpec, acquire func(context.Context) error) ([]candidate.RawRecord, error) {
	if l.demo {
		return demoRecords(linkedinSourceID, job), nil
	}

	q := url.Values{}
	q.Set("q", query(job))
	q.Set("per_page", strconv.Itoa(linkedinPerPage))

	var records []candidate.RawRecord
	page := 0
	for {
		q.Set("page", strconv.Itoa(page))

		// The runner paid for the first call; pagination pays per page.
		if page > 0 {
			if err := acquire(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := l.getJSON(ctx, linkedinSearchPath, q)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		for _, p := range resp.Items {
			records = append(records, candidate.RawRecord{
				SourceID:  linkedinSourceID,
				FetchedAt: now,
				Profile: candidate.RawProfile{
					Name:       p.Name,
					Headline:   p.Headline,
					Location:   p.Location,
					ProfileURL: p.ProfileURL,
					Snippet:    p.Snippet,
					Experience: p.Experience,
					Education:  p.Education,
					Skills:     p.Skills,
				},
			})
		}

		if resp.Page >= resp.Pages-1 || len(resp.Items) == 0 || len(records) >= job.MaxCandidates*2 {
			break
		}
		page = resp.Page + 1
	}

	return records, nil
}

func (l *LinkedIn) getJSON(ctx context.Context, path string, q url.Values) (*profileSearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", l.token))
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.URL.RawQuery = q.Encode()

	l.logger.Debug("make request", zap.String("url", req.URL.Path))

	resp, err := l.HTTPClient.Do(req)
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

	var payload profileSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return &payload, nil
}

// retryAfter parses the Retry-After header as delay seconds. Missing or
// malformed headers yield zero so the backoff strategy decides.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
