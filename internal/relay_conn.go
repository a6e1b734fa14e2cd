package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/net/websocket"
)

const closeWriteTimeout = time.Second

// subscribe runs one relay session: dial, REQ, read until the linger period
// ends, then CLOSE. EOSE does not end the session early.
func (r *RelayNetwork) subscribe(ctx context.Context, relayURL, subID string, filter relayFilter, c *eventCollector) error {
	conn, err := dialRelay(ctx, relayURL, r.cfg.Origin)
	if err != nil {
		return err
	}
	LogDebug("Connected to %s", relayURL)

	linger, cancel := context.WithTimeout(ctx, r.cfg.Linger)
	defer cancel()

	req, err := json.Marshal([]any{"REQ", subID, filter})
	if err != nil {
		conn.Close()
		return &SourceError{Source: nostrSourceName, Target: relayURL, Err: err}
	}
	if err := websocket.Message.Send(conn, string(req)); err != nil {
		conn.Close()
		return &SourceError{Source: nostrSourceName, Target: relayURL, Err: fmt.Errorf("failed to send REQ: %w", err)}
	}

	readDone := make(chan error, 1)
	go func() {
		readDone <- readFrames(conn, relayURL, subID, c)
	}()

	select {
	case <-linger.Done():
		closeMsg, _ := json.Marshal([]any{"CLOSE", subID})
		_ = conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
		if err := websocket.Message.Send(conn, string(closeMsg)); err != nil {
			LogDebug("Failed to send CLOSE to %s: %v", relayURL, err)
		}
		conn.Close()
		<-readDone
		LogDebug("Disconnected from %s", relayURL)
		return nil
	case err := <-readDone:
		conn.Close()
		LogDebug("Disconnected from %s", relayURL)
		if err != nil && !errors.Is(err, io.EOF) {
			return &SourceError{Source: nostrSourceName, Target: relayURL, Err: err}
		}
		return nil
	}
}

func dialRelay(ctx context.Context, relayURL, origin string) (*websocket.Conn, error) {
	wsCfg, err := websocket.NewConfig(relayURL, origin)
	if err != nil {
		return nil, &SourceError{Source: nostrSourceName, Target: relayURL, Err: err}
	}
	conn, err := wsCfg.DialContext(ctx)
	if err != nil {
		return nil, &SourceError{Source: nostrSourceName, Target: relayURL, Err: fmt.Errorf("failed to connect: %w", err)}
	}
	return conn, nil
}

func readFrames(conn *websocket.Conn, relayURL, subID string, c *eventCollector) error {
	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			return err
		}
		handleFrame(relayURL, subID, []byte(msg), c)
	}
}

// handleFrame interprets one relay message. Malformed frames are dropped.
func handleFrame(relayURL, subID string, msg []byte, c *eventCollector) {
	var frame []json.RawMessage
	if err := json.Unmarshal(msg, &frame); err != nil || len(frame) == 0 {
		LogDebug("Error parsing message from %s: %s", relayURL, msg)
		return
	}
	var label string
	if err := json.Unmarshal(frame[0], &label); err != nil {
		LogDebug("Error parsing message from %s: %v", relayURL, err)
		return
	}

	switch label {
	case "EVENT":
		if len(frame) < 3 {
			return
		}
		var sid string
		if err := json.Unmarshal(frame[1], &sid); err != nil || sid != subID {
			return
		}
		var ev relayEvent
		if err := json.Unmarshal(frame[2], &ev); err != nil || ev.ID == "" {
			LogDebug("Dropping malformed event from %s", relayURL)
			return
		}
		if c.add(ev) {
			LogDebug("Received event %s from %s", ev.ID, relayURL)
		}
	case "EOSE":
		LogDebug("EOSE from %s", relayURL)
	case "NOTICE", "CLOSED":
		LogDebug("%s from %s: %s", label, relayURL, msg)
	default:
		LogDebug("Ignoring %s frame from %s", label, relayURL)
	}
}

// ProbeRelay opens and immediately closes a websocket to relayURL, reporting
// how long the handshake took
func ProbeRelay(ctx context.Context, relayURL, origin string) (time.Duration, error) {
	start := time.Now()
	conn, err := dialRelay(ctx, relayURL, origin)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start)
	conn.Close()
	return elapsed, nil
}
