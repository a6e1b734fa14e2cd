package testutil

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/websocket"
)

// RelayMode controls how a fake relay behaves after the handshake
type RelayMode int

const (
	// RelayScripted answers each REQ with the configured events then EOSE
	RelayScripted RelayMode = iota
	// RelaySilent accepts the websocket but never sends anything
	RelaySilent
)

// RelayFake is a websocket relay speaking just enough of the protocol for tests
type RelayFake struct {
	Server *httptest.Server
	Mode   RelayMode

	mu       sync.Mutex
	events   []map[string]any
	extra    []string
	reqs     []json.RawMessage
	closes   []string
	sessions int
}

// NewRelayFake starts a fake relay serving events on every subscription
func NewRelayFake(t *testing.T, mode RelayMode, events ...map[string]any) *RelayFake {
	t.Helper()
	f := &RelayFake{Mode: mode, events: events}
	f.Server = httptest.NewServer(websocket.Handler(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the ws:// endpoint of the relay
func (f *RelayFake) URL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http")
}

// SendRaw queues extra raw frames sent after the events, before EOSE
func (f *RelayFake) SendRaw(frames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extra = append(f.extra, frames...)
}

// Filters returns the filter object of every REQ received
func (f *RelayFake) Filters() []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]json.RawMessage, len(f.reqs))
	copy(out, f.reqs)
	return out
}

// Closes returns the subscription ids of every CLOSE received
func (f *RelayFake) Closes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.closes))
	copy(out, f.closes)
	return out
}

// Sessions returns how many websocket connections were accepted
func (f *RelayFake) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *RelayFake) handle(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()

	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return
		}
		if f.Mode == RelaySilent {
			continue
		}

		var frame []json.RawMessage
		if err := json.Unmarshal([]byte(msg), &frame); err != nil || len(frame) < 2 {
			continue
		}
		var label, subID string
		_ = json.Unmarshal(frame[0], &label)
		_ = json.Unmarshal(frame[1], &subID)

		switch label {
		case "REQ":
			f.mu.Lock()
			if len(frame) > 2 {
				f.reqs = append(f.reqs, frame[2])
			}
			events := append([]map[string]any(nil), f.events...)
			extra := append([]string(nil), f.extra...)
			f.mu.Unlock()

			for _, ev := range events {
				out, _ := json.Marshal([]any{"EVENT", subID, ev})
				if err := websocket.Message.Send(conn, string(out)); err != nil {
					return
				}
			}
			for _, raw := range extra {
				if err := websocket.Message.Send(conn, raw); err != nil {
					return
				}
			}
			eose, _ := json.Marshal([]any{"EOSE", subID})
			if err := websocket.Message.Send(conn, string(eose)); err != nil {
				return
			}
		case "CLOSE":
			f.mu.Lock()
			f.closes = append(f.closes, subID)
			f.mu.Unlock()
		}
	}
}

// BlackholeRelay accepts TCP connections and never answers, not even the
// websocket handshake
type BlackholeRelay struct {
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

// NewBlackholeRelay starts a listener that swallows connections
func NewBlackholeRelay(t *testing.T) *BlackholeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	b := &BlackholeRelay{ln: ln}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			b.mu.Lock()
			b.conns = append(b.conns, c)
			b.mu.Unlock()
		}
	}()
	t.Cleanup(b.Close)
	return b
}

// URL returns the ws:// endpoint
func (b *BlackholeRelay) URL() string {
	return "ws://" + b.ln.Addr().String()
}

// Close stops accepting and drops held connections
func (b *BlackholeRelay) Close() {
	_ = b.ln.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		_ = c.Close()
	}
	b.conns = nil
}
