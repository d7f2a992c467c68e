package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// ConnectTimeout is max time to wait for the stream's connected event
	ConnectTimeout = 10 * time.Second
	// EventTimeout is max time to wait for an expected room event
	EventTimeout = 10 * time.Second
)

// EventStream follows a room's SSE endpoint and buffers event types.
type EventStream struct {
	events chan string
	errc   chan error
	cancel context.CancelFunc
}

// OpenEventStream subscribes to a room's events and returns once the server
// confirms the subscription, so no event published afterwards is missed.
func OpenEventStream(ctx context.Context, baseURL, roomID string) (*EventStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	target := fmt.Sprintf("%s/v1/events/rooms/%s", baseURL, url.PathEscape(roomID))
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open for the whole suite.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %d: %s", resp.StatusCode, string(body))
	}

	s := &EventStream{
		events: make(chan string, 64),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	connected := make(chan struct{})
	go s.read(streamCtx, resp.Body, connected)

	select {
	case <-connected:
		return s, nil
	case err := <-s.errc:
		cancel()
		return nil, fmt.Errorf("event stream closed before connecting: %w", err)
	case <-time.After(ConnectTimeout):
		cancel()
		return nil, fmt.Errorf("timeout waiting for event stream to connect (waited %v)", ConnectTimeout)
	}
}

func (s *EventStream) read(ctx context.Context, body io.ReadCloser, connected chan<- struct{}) {
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		eventType, ok := strings.CutPrefix(scanner.Text(), "event: ")
		if !ok {
			continue
		}
		if eventType == "connected" {
			if connected != nil {
				close(connected)
				connected = nil
			}
			continue
		}
		select {
		case s.events <- eventType:
		case <-ctx.Done():
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.errc <- err
}

// Drain discards buffered events.
func (s *EventStream) Drain() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

// Expect waits until the wanted event types have arrived in order, skipping
// any others.
func (s *EventStream) Expect(ctx context.Context, want []string) error {
	timeout := time.After(EventTimeout)
	var seen []string
	for i := 0; i < len(want); {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for event %q (waited %v, saw %v)", want[i], EventTimeout, seen)
		case err := <-s.errc:
			return fmt.Errorf("event stream closed while waiting for %q: %w", want[i], err)
		case got := <-s.events:
			seen = append(seen, got)
			if got == want[i] {
				i++
			}
		}
	}
	return nil
}

// Close ends the subscription.
func (s *EventStream) Close() {
	s.cancel()
}
