package internal

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	nostrSourceName = "nostr"
	nostrNoteKind   = 1
	nostrNoteTitle  = "Note from Nostr"
)

// relayFilter is the subscription filter sent with REQ
type relayFilter struct {
	Authors []string `json:"authors"`
	Kinds   []int    `json:"kinds"`
	Since   int64    `json:"since"`
	Limit   int      `json:"limit"`
}

// relayEvent is a signed note as relays deliver it
type relayEvent struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// RelayNetwork fetches the configured author's recent notes from every
// configured relay at once
type RelayNetwork struct {
	cfg      RelayConfig
	now      func() time.Time
	newSubID func() string

	keyOnce sync.Once
	hexKey  string
	keyErr  error
}

// NewRelayNetwork creates a relay-network source from cfg
func NewRelayNetwork(cfg RelayConfig) *RelayNetwork {
	return &RelayNetwork{
		cfg:      cfg,
		now:      time.Now,
		newSubID: uuid.NewString,
	}
}

// WithClock replaces the time source used for the since filter
func (r *RelayNetwork) WithClock(now func() time.Time) *RelayNetwork {
	r.now = now
	return r
}

// Name implements Source
func (r *RelayNetwork) Name() string {
	return nostrSourceName
}

// Kind implements Source
func (r *RelayNetwork) Kind() SourceKind {
	return SourceRelayNetwork
}

// PublicKey returns the hex form of the configured npub. It is decoded once
// and the outcome, success or failure, is reused.
func (r *RelayNetwork) PublicKey() (string, error) {
	r.keyOnce.Do(func() {
		r.hexKey, r.keyErr = DecodeNPub(r.cfg.NPub)
	})
	return r.hexKey, r.keyErr
}

// Fetch subscribes on every relay concurrently and returns the matching notes
// collected before all connections closed or the global timeout fired,
// whichever comes first.
func (r *RelayNetwork) Fetch(ctx context.Context, window time.Duration) FetchResult {
	result := FetchResult{Source: r.Name(), Kind: r.Kind()}

	hexKey, err := r.PublicKey()
	if err != nil {
		LogError("Error decoding npub: %v", err)
		result.Err = err
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	filter := relayFilter{
		Authors: []string{hexKey},
		Kinds:   []int{nostrNoteKind},
		Since:   r.now().Add(-window).Unix(),
		Limit:   r.cfg.Limit,
	}

	var (
		collector = newEventCollector()
		wg        sync.WaitGroup
		errMu     sync.Mutex
		errs      []error
	)
	for _, relayURL := range r.cfg.Relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()
			if err := r.subscribe(ctx, relayURL, r.newSubID(), filter, collector); err != nil {
				LogError("Error with %s: %v", relayURL, err)
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(relayURL)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		LogWarn("Relay fetch stopped after %s with %d events collected", r.cfg.Timeout, collector.count())
		errMu.Lock()
		errs = append(errs, fmt.Errorf("relay fetch incomplete: %w", ctx.Err()))
		errMu.Unlock()
	}

	errMu.Lock()
	result.Err = errors.Join(errs...)
	errMu.Unlock()

	result.Items = r.normalize(collector.snapshot())
	LogDebug("Nostr: %d events, %d items", collector.count(), len(result.Items))
	return result
}

// normalize keeps notes carrying the hashtag and maps them to items, newest first
func (r *RelayNetwork) normalize(events []relayEvent) []NormalizedItem {
	slices.SortStableFunc(events, func(a, b relayEvent) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})

	viewer := strings.TrimRight(r.cfg.ViewerURL, "/")
	items := make([]NormalizedItem, 0, len(events))
	for _, ev := range events {
		if !containsFold(ev.Content, r.cfg.Hashtag) {
			continue
		}
		items = append(items, NormalizedItem{
			SourceKind:  SourceRelayNetwork,
			ExternalID:  "nostr-" + ev.ID,
			Title:       nostrNoteTitle,
			Body:        Truncate(ev.Content, r.cfg.BodyLimit),
			URL:         viewer + "/" + ev.ID,
			PublishedAt: time.Unix(ev.CreatedAt, 0).UTC(),
			Metadata: Metadata{
				"event_id": ev.ID,
				"platform": nostrSourceName,
				"npub":     r.cfg.NPub,
			},
		})
	}
	return items
}

// eventCollector gathers events from every connection, first copy wins
type eventCollector struct {
	seen   *SeenSet
	mu     sync.Mutex
	events []relayEvent
}

func newEventCollector() *eventCollector {
	return &eventCollector{seen: NewSeenSet()}
}

func (c *eventCollector) add(ev relayEvent) bool {
	if !c.seen.Add(ev.ID) {
		return false
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return true
}

func (c *eventCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *eventCollector) snapshot() []relayEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]relayEvent, len(c.events))
	copy(out, c.events)
	return out
}
