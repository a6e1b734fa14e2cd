package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	githubSourceName  = "github"
	githubAccept      = "application/vnd.github+json"
	githubAPIVersion  = "2022-11-28"
	maxErrorBodyBytes = 512
)

// CodeHost fetches recent organization activity from the GitHub REST API
type CodeHost struct {
	cfg    CodeHostConfig
	client *http.Client
	now    func() time.Time
}

// NewCodeHost creates a code-host source from cfg
func NewCodeHost(cfg CodeHostConfig) *CodeHost {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CodeHost{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// WithHTTPClient replaces the HTTP client
func (c *CodeHost) WithHTTPClient(client *http.Client) *CodeHost {
	c.client = client
	return c
}

// WithClock replaces the time source used for the lookback window
func (c *CodeHost) WithClock(now func() time.Time) *CodeHost {
	c.now = now
	return c
}

// Name implements Source
func (c *CodeHost) Name() string {
	return githubSourceName
}

// Kind implements Source
func (c *CodeHost) Kind() SourceKind {
	return SourceCodeHost
}

// Fetch pulls the org event stream and the recently pushed repositories
// concurrently. A failing call is logged and contributes nothing; the other
// call's items are still returned.
func (c *CodeHost) Fetch(ctx context.Context, window time.Duration) FetchResult {
	now := c.now()

	var (
		events    []ghEvent
		repos     []ghRepo
		eventsErr error
		repoErr   error
		g         errgroup.Group
	)
	g.Go(func() error {
		events, eventsErr = c.fetchEvents(ctx)
		if eventsErr != nil {
			LogError("Error fetching GitHub org events: %v", eventsErr)
		}
		return nil
	})
	g.Go(func() error {
		repos, repoErr = c.fetchRepos(ctx)
		if repoErr != nil {
			LogError("Error fetching GitHub repos: %v", repoErr)
		}
		return nil
	})
	_ = g.Wait()

	items := c.eventItems(events, now, window)
	items = append(items, c.repoItems(repos, now, window)...)

	LogDebug("GitHub: %d events, %d repos, %d items", len(events), len(repos), len(items))
	return FetchResult{
		Source: c.Name(),
		Kind:   c.Kind(),
		Items:  items,
		Err:    errors.Join(eventsErr, repoErr),
	}
}

func (c *CodeHost) fetchEvents(ctx context.Context) ([]ghEvent, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(c.cfg.EventsPerPage))

	var events []ghEvent
	if err := c.getJSON(ctx, "/orgs/"+url.PathEscape(c.cfg.Org)+"/events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *CodeHost) fetchRepos(ctx context.Context) ([]ghRepo, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(c.cfg.ReposPerPage))
	query.Set("sort", "pushed")
	query.Set("direction", "desc")

	var repos []ghRepo
	if err := c.getJSON(ctx, "/orgs/"+url.PathEscape(c.cfg.Org)+"/repos", query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *CodeHost) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &SourceError{Source: githubSourceName, Target: target, Err: err}
	}
	req.Header.Set("Accept", githubAccept)
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &SourceError{Source: githubSourceName, Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &SourceError{
			Source: githubSourceName,
			Target: target,
			Err:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &SourceError{Source: githubSourceName, Target: target, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// repoURL builds the web link for "owner/name"
func (c *CodeHost) repoURL(fullName string) string {
	return strings.TrimRight(c.cfg.WebURL, "/") + "/" + fullName
}
