package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

const (
	githubSourceID    = "github"
	githubSearchLimit = 10
)

// GitHub is the code-hosting source. It searches public accounts matching the
// job query and enriches each hit with account statistics.
type GitHub struct {
	client *gh.Client
	demo   bool
	logger *zap.Logger
}

// NewGitHub creates the code-hosting adapter. baseURL overrides the API
// endpoint (used by tests); an empty token keeps the client unauthenticated.
func NewGitHub(baseURL, token string, demo bool, logger *zap.Logger) (*GitHub, error) {
	client := gh.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		endpoint, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = endpoint
	}

	return &GitHub{client: client, demo: demo, logger: logger}, nil
}

func (g *GitHub) id() string { return githubSourceID }

func (g *GitHub) healthy(ctx context.Context) bool {
	if g.demo {
		return true
	}
	_, _, err := g.client.RateLimit.Get(ctx)
	return err == nil
}

func (g *GitHub) fetch(ctx context.Context, job *candidate.JobSpec, acquire func(context.Context) error) ([]candidate.RawRecord, error) {
	if g.demo {
		return demoRecords(githubSourceID, job), nil
	}

	q := query(job) + " type:user"
	result, _, err := g.client.Search.Users(ctx, q, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: githubSearchLimit},
	})
	if err != nil {
		return nil, wrapGitHubErr(err)
	}

	var records []candidate.RawRecord
	for _, hit := range result.Users {
		if len(records) >= githubSearchLimit {
			break
		}

		if err := acquire(ctx); err != nil {
			return nil, err
		}

		user, _, err := g.client.Users.Get(ctx, hit.GetLogin())
		if err != nil {
			if throttled := wrapGitHubErr(err); isThrottle(throttled) {
				return nil, throttled
			}
			g.logger.Debug("account lookup failed",
				zap.String("login", hit.GetLogin()),
				zap.Error(err),
			)
			continue
		}

		records = append(records, githubRecord(user))
	}

	return records, nil
}

func githubRecord(user *gh.User) candidate.RawRecord {
	name := user.GetName()
	if name == "" {
		name = user.GetLogin()
	}

	// A profile link in the account's blog field is the person's primary
	// profile; it lets the merger correlate this record with the primary
	// source. Otherwise the account page itself is the profile.
	profileURL := user.GetHTMLURL()
	if blog := user.GetBlog(); strings.Contains(blog, "linkedin.com/in") {
		profileURL = blog
	}

	return candidate.RawRecord{
		SourceID:  githubSourceID,
		FetchedAt: time.Now().UTC(),
		Profile: candidate.RawProfile{
			Name:       name,
			Headline:   user.GetBio(),
			Location:   user.GetLocation(),
			ProfileURL: profileURL,
			GitHub: &candidate.GitHubStats{
				Login:       user.GetLogin(),
				PublicRepos: user.GetPublicRepos(),
				Followers:   user.GetFollowers(),
			},
		},
	}
}

func wrapGitHubErr(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return &ThrottleError{RetryAfter: wait}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := time.Duration(0)
		if abuseErr.RetryAfter != nil {
			wait = *abuseErr.RetryAfter
		}
		return &ThrottleError{RetryAfter: wait}
	}

	return err
}

func isThrottle(err error) bool {
	var throttle *ThrottleError
	return errors.As(err, &throttle)
}
