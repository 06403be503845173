package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

const (
	microblogSourceID   = "microblog"
	microblogSearchPath = "/2/users/search"
)

// Microblog is the short-form posts profile source.
type Microblog struct {
	BaseURL    string
	HTTPClient *http.Client

	token  string
	demo   bool
	logger *zap.Logger
}

// NewMicroblog creates the microblog adapter.
func NewMicroblog(baseURL, token string, demo bool, logger *zap.Logger) *Microblog {
	return &Microblog{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		token:  token,
		demo:   demo,
		logger: logger,
	}
}

func (m *Microblog) id() string { return microblogSourceID }

func (m *Microblog) healthy(ctx context.Context) bool {
	if m.demo {
		return true
	}
	return m.BaseURL != "" && m.token != ""
}

type microblogSearchResponse struct {
	Data []microblogUser `json:"data"`
}

type microblogUser struct {
	Username      string `json:"username"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	URL           string `json:"url"`
	PublicMetrics struct {
		Followers int `json:"followers_count"`
		Posts     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

func (m *Microblog) fetch(ctx context.Context, job *candidate.JobSpec, _ func(context.Context) error) ([]candidate.RawRecord, error) {
	if m.demo {
		return demoRecords(microblogSourceID, job), nil
	}

	q := url.Values{}
	q.Set("query", query(job))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+microblogSearchPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.token))
	req.URL.RawQuery = q.Encode()

	m.logger.Debug("make request", zap.String("url", req.URL.Path))

	resp, err := m.HTTPClient.Do(req)
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

	var payload microblogSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	now := time.Now().UTC()
	records := make([]candidate.RawRecord, 0, len(payload.Data))
	for _, u := range payload.Data {
		records = append(records, candidate.RawRecord{
			SourceID:  microblogSourceID,
			FetchedAt: now,
			Profile: candidate.RawProfile{
				Name:       u.Name,
				Location:   u.Location,
				ProfileURL: u.URL,
				Snippet:    u.Description,
				Microblog: &candidate.MicroblogStats{
					Handle:    u.Username,
					Followers: u.PublicMetrics.Followers,
					Posts:     u.PublicMetrics.Posts,
					Bio:       u.Description,
				},
			},
		})
	}

	return records, nil
}
