// Package github implements contract.StatsProvider on top of the GitHub REST API
// and a public contribution-calendar feed.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
)

const (
	defaultUserAgent = "folio/1.0"

	// MaxRepoPages caps repository pagination.
	MaxRepoPages = 3

	// ReposPerPage is the page size requested from the repository endpoint.
	ReposPerPage = 100

	maxErrorBody = 64 << 10
)

// Provider fetches profile, repository and contribution data over HTTP.
type Provider struct {
	client           *http.Client
	baseURL          string
	contributionsURL string
	token            string
	userAgent        string
}

var _ contract.StatsProvider = &Provider{} // Compile-time check

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the GitHub REST API root.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithContributionsURL overrides the contribution feed root.
func WithContributionsURL(u string) Option {
	return func(p *Provider) { p.contributionsURL = u }
}

// WithToken sets a bearer token for the GitHub API.
func WithToken(token string) Option {
	return func(p *Provider) { p.token = token }
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.client.Timeout = d }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// New creates a Provider with sensible defaults.
func New(opts ...Option) *Provider {
	p := &Provider{
		client:           &http.Client{Timeout: contract.DefaultRequestTimeout},
		baseURL:          contract.DefaultGitHubAPIURL,
		contributionsURL: contract.DefaultContributionsURL,
		userAgent:        defaultUserAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FetchProfile implements the StatsProvider interface.
func (p *Provider) FetchProfile(ctx context.Context, identity string) (schema.UpstreamProfile, error) {
	endpoint := fmt.Sprintf("%s/users/%s", p.baseURL, url.PathEscape(identity))

	var profile schema.UpstreamProfile
	if err := p.getJSON(ctx, endpoint, &profile); err != nil {
		return schema.UpstreamProfile{}, err
	}
	return profile, nil
}

// FetchRepos implements the StatsProvider interface.
// Pages are requested one after another and stop at the first short page.
func (p *Provider) FetchRepos(ctx context.Context, identity string) ([]schema.UpstreamRepo, error) {
	var allRepos []schema.UpstreamRepo
	for page := 1; page <= MaxRepoPages; page++ {
		endpoint := fmt.Sprintf("%s/users/%s/repos?per_page=%d&page=%d&sort=updated",
			p.baseURL, url.PathEscape(identity), ReposPerPage, page)

		var batch []schema.UpstreamRepo
		if err := p.getJSON(ctx, endpoint, &batch); err != nil {
			return nil, err
		}
		allRepos = append(allRepos, batch...)

		if len(batch) < ReposPerPage {
			break
		}
	}
	return allRepos, nil
}

// FetchContributions implements the StatsProvider interface.
// Errors are returned so callers can log them; they are never rate-limit tagged.
func (p *Provider) FetchContributions(ctx context.Context, identity string) ([]schema.ContributionDay, error) {
	endpoint := fmt.Sprintf("%s/%s", p.contributionsURL, url.PathEscape(identity))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch contribution graph: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch contribution graph: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Contributions []schema.ContributionDay `json:"contributions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode contribution graph: %w", err)
	}
	return result.Contributions, nil
}

// getJSON issues a GitHub API request and decodes a 2xx body into out.
// Failures are reported as *contract.UpstreamError.
func (p *Provider) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return contract.NewTransportError(endpoint, err)
	}
	p.applyHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return contract.NewTransportError(endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return contract.NewStatusError(resp.StatusCode, endpoint, errorMessage(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &contract.UpstreamError{URL: endpoint, Message: "decode response", Err: err}
	}
	return nil
}

func (p *Provider) applyHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", p.userAgent)
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
}

// errorMessage extracts the "message" field of a GitHub error body.
// An empty result makes the caller fall back to the status text.
func errorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Message
}
