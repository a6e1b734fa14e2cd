package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// RecordedRequest captures what a fake server received
type RecordedRequest struct {
	Path   string
	Query  map[string]string
	Header http.Header
}

// GitHubFake serves the two organization endpoints the code-host adapter calls
type GitHubFake struct {
	Server *httptest.Server
	Org    string

	mu           sync.Mutex
	eventsBody   []byte
	reposBody    []byte
	eventsStatus int
	reposStatus  int
	requests     []RecordedRequest
}

// NewGitHubFake starts a fake GitHub API for org. Both endpoints return an
// empty JSON array until configured.
func NewGitHubFake(t *testing.T, org string) *GitHubFake {
	t.Helper()
	f := &GitHubFake{
		Org:          org,
		eventsBody:   []byte("[]"),
		reposBody:    []byte("[]"),
		eventsStatus: http.StatusOK,
		reposStatus:  http.StatusOK,
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to configure as the API root
func (f *GitHubFake) URL() string {
	return f.Server.URL
}

// SetEvents sets the event stream payload
func (f *GitHubFake) SetEvents(t *testing.T, events any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsBody = JSONMarshal(t, events)
}

// SetRepos sets the repository list payload
func (f *GitHubFake) SetRepos(t *testing.T, repos any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reposBody = JSONMarshal(t, repos)
}

// SetEventsRaw sets the event stream body verbatim, e.g. to serve malformed JSON
func (f *GitHubFake) SetEventsRaw(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsBody = []byte(body)
}

// FailEvents makes the event endpoint answer with status
func (f *GitHubFake) FailEvents(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsStatus = status
}

// FailRepos makes the repository endpoint answer with status
func (f *GitHubFake) FailRepos(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reposStatus = status
}

// Requests returns a copy of every request received so far
func (f *GitHubFake) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *GitHubFake) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	query := make(map[string]string)
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	f.requests = append(f.requests, RecordedRequest{Path: r.URL.Path, Query: query, Header: r.Header.Clone()})

	var (
		body   []byte
		status int
	)
	switch r.URL.Path {
	case "/orgs/" + f.Org + "/events":
		body, status = f.eventsBody, f.eventsStatus
	case "/orgs/" + f.Org + "/repos":
		body, status = f.reposBody, f.reposStatus
	default:
		f.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status/100 != 2 {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": strings.ToLower(http.StatusText(status))})
		return
	}
	_, _ = w.Write(body)
}
