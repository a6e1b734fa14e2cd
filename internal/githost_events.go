package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// GitHub event types the feed understands. Everything else is dropped.
const (
	ghPushEvent        = "PushEvent"
	ghPullRequestEvent = "PullRequestEvent"
	ghIssuesEvent      = "IssuesEvent"
	ghCreateEvent      = "CreateEvent"
)

type ghEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Repo struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

type ghRepo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	HTMLURL     string `json:"html_url"`
	Language    string `json:"language"`
	Stars       int    `json:"stargazers_count"`
	PushedAt    string `json:"pushed_at"`
}

type ghPushPayload struct {
	Size    int `json:"size"`
	Commits []struct {
		Message string `json:"message"`
	} `json:"commits"`
}

type ghPullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
}

type ghIssuesPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		HTMLURL string `json:"html_url"`
	} `json:"issue"`
}

type ghCreatePayload struct {
	RefType string `json:"ref_type"`
	Ref     string `json:"ref"`
}

// datedEvent is an event whose timestamp has been parsed
type datedEvent struct {
	ghEvent
	at time.Time
}

// eventGroup is every retained event for one (repository, type) pair
type eventGroup struct {
	repo   string
	typ    string
	events []datedEvent
}

// latest returns the most recent event; ties go to the earliest listed
func (g *eventGroup) latest() datedEvent {
	best := g.events[0]
	for _, ev := range g.events[1:] {
		if ev.at.After(best.at) {
			best = ev
		}
	}
	return best
}

func supportedEventType(typ string) bool {
	switch typ {
	case ghPushEvent, ghPullRequestEvent, ghIssuesEvent, ghCreateEvent:
		return true
	default:
		return false
	}
}

// groupEvents keeps supported events inside the window and groups them by
// (repository, type) in first-seen order
func groupEvents(events []ghEvent, now time.Time, window time.Duration) []*eventGroup {
	var (
		groups []*eventGroup
		index  = make(map[[2]string]*eventGroup)
	)
	for _, ev := range events {
		if !supportedEventType(ev.Type) {
			continue
		}
		at, err := parseTimestamp(ev.CreatedAt)
		if err != nil {
			LogWarn("Skipping GitHub event %s: %v", ev.ID, err)
			continue
		}
		if !withinWindow(at, now, window) {
			continue
		}

		key := [2]string{ev.Repo.Name, ev.Type}
		g, ok := index[key]
		if !ok {
			g = &eventGroup{repo: ev.Repo.Name, typ: ev.Type}
			index[key] = g
			groups = append(groups, g)
		}
		g.events = append(g.events, datedEvent{ghEvent: ev, at: at})
	}
	return groups
}

// eventItems turns the event stream into one item per (repository, type)
func (c *CodeHost) eventItems(events []ghEvent, now time.Time, window time.Duration) []NormalizedItem {
	var items []NormalizedItem
	for _, g := range groupEvents(events, now, window) {
		var (
			item NormalizedItem
			err  error
		)
		switch g.typ {
		case ghPushEvent:
			item, err = c.pushItem(g)
		case ghPullRequestEvent:
			item, err = c.pullRequestItem(g.latest())
		case ghIssuesEvent:
			item, err = c.issueItem(g.latest())
		case ghCreateEvent:
			item, err = c.createItem(g.latest())
		}
		if err != nil {
			LogWarn("Skipping GitHub %s group for %s: %v", g.typ, g.repo, err)
			continue
		}
		items = append(items, item)
	}
	return items
}

// pushCommitCount prefers the payload's size and falls back to the commit list
func pushCommitCount(p ghPushPayload) int {
	if p.Size > 0 {
		return p.Size
	}
	return len(p.Commits)
}

func (c *CodeHost) pushItem(g *eventGroup) (NormalizedItem, error) {
	rep := g.latest()

	total := 0
	var repPayload ghPushPayload
	for _, ev := range g.events {
		var p ghPushPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			LogDebug("Ignoring unreadable push payload %s: %v", ev.ID, err)
			continue
		}
		total += pushCommitCount(p)
		if ev.ID == rep.ID {
			repPayload = p
		}
	}

	body := "Code changes pushed"
	if len(repPayload.Commits) > 0 {
		body = firstNonEmpty(repPayload.Commits[0].Message, body)
	}

	repo := shortRepoName(g.repo)
	return NormalizedItem{
		SourceKind:  SourceCodeHost,
		ExternalID:  "github-push-" + rep.ID,
		Title:       fmt.Sprintf("%s to %s", Pluralize(total, "commit"), repo),
		Body:        Truncate(body, c.cfg.BodyLimit),
		URL:         c.repoURL(g.repo),
		PublishedAt: rep.at,
		Metadata: Metadata{
			"repo_name":     repo,
			"commits_count": total,
			"event_type":    "push",
		},
	}, nil
}

func (c *CodeHost) pullRequestItem(ev datedEvent) (NormalizedItem, error) {
	var p ghPullRequestPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return NormalizedItem{}, fmt.Errorf("failed to decode pull request payload: %w", err)
	}

	repo := shortRepoName(ev.Repo.Name)
	return NormalizedItem{
		SourceKind:  SourceCodeHost,
		ExternalID:  "github-pr-" + ev.ID,
		Title:       fmt.Sprintf("PR %s in %s: %s", p.Action, repo, p.PullRequest.Title),
		Body:        Truncate(firstNonEmpty(p.PullRequest.Body, "Pull request activity"), c.cfg.BodyLimit),
		URL:         firstNonEmpty(p.PullRequest.HTMLURL, c.repoURL(ev.Repo.Name)),
		PublishedAt: ev.at,
		Metadata: Metadata{
			"repo_name":  repo,
			"pr_number":  p.PullRequest.Number,
			"action":     p.Action,
			"event_type": "pull_request",
		},
	}, nil
}

func (c *CodeHost) issueItem(ev datedEvent) (NormalizedItem, error) {
	var p ghIssuesPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return NormalizedItem{}, fmt.Errorf("failed to decode issue payload: %w", err)
	}

	repo := shortRepoName(ev.Repo.Name)
	return NormalizedItem{
		SourceKind:  SourceCodeHost,
		ExternalID:  "github-issue-" + ev.ID,
		Title:       fmt.Sprintf("Issue %s in %s: %s", p.Action, repo, p.Issue.Title),
		Body:        Truncate(firstNonEmpty(p.Issue.Body, "Issue activity"), c.cfg.BodyLimit),
		URL:         firstNonEmpty(p.Issue.HTMLURL, c.repoURL(ev.Repo.Name)),
		PublishedAt: ev.at,
		Metadata: Metadata{
			"repo_name":    repo,
			"issue_number": p.Issue.Number,
			"action":       p.Action,
			"event_type":   "issue",
		},
	}, nil
}

func (c *CodeHost) createItem(ev datedEvent) (NormalizedItem, error) {
	var p ghCreatePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return NormalizedItem{}, fmt.Errorf("failed to decode create payload: %w", err)
	}

	repo := shortRepoName(ev.Repo.Name)
	return NormalizedItem{
		SourceKind:  SourceCodeHost,
		ExternalID:  "github-create-" + ev.ID,
		Title:       fmt.Sprintf("New %s created in %s", p.RefType, repo),
		Body:        Truncate(fmt.Sprintf("A new %s was created", p.RefType), c.cfg.BodyLimit),
		URL:         c.repoURL(ev.Repo.Name),
		PublishedAt: ev.at,
		Metadata: Metadata{
			"repo_name":  repo,
			"ref_type":   p.RefType,
			"event_type": "create",
		},
	}, nil
}

// repoItems emits one "updated" item per repository pushed inside the window
func (c *CodeHost) repoItems(repos []ghRepo, now time.Time, window time.Duration) []NormalizedItem {
	var items []NormalizedItem
	for _, r := range repos {
		pushedAt, err := parseTimestamp(r.PushedAt)
		if err != nil {
			LogWarn("Skipping GitHub repo %s: %v", r.Name, err)
			continue
		}
		if !withinWindow(pushedAt, now, window) {
			continue
		}

		fullName := firstNonEmpty(r.FullName, c.cfg.Org+"/"+r.Name)
		items = append(items, NormalizedItem{
			SourceKind:  SourceCodeHost,
			ExternalID:  "github-repo-" + strconv.FormatInt(r.ID, 10) + "-" + r.PushedAt,
			Title:       r.Name + " updated",
			Body:        Truncate(firstNonEmpty(r.Description, "Repository activity"), c.cfg.BodyLimit),
			URL:         firstNonEmpty(r.HTMLURL, c.repoURL(fullName)),
			PublishedAt: pushedAt,
			Metadata: Metadata{
				"repo_name":  r.Name,
				"language":   r.Language,
				"stars":      r.Stars,
				"event_type": "repository_update",
			},
		})
	}
	return items
}
