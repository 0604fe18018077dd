// Package browser provides a capture source fed by the browser's own speech
// recognition engine.
//
// The page runs recognition locally and pushes results to the server over a
// WebSocket as JSON messages:
//
//	{"type": "partial", "text": "so far i have"}
//	{"type": "final",   "text": "So far I have covered the budget.", "confidence": 0.92}
//
// The [Bridge] is both a capture.Source and an http.Handler: the server opens
// a stream when a session starts and mounts the handler on its mux so the
// page can connect. Only one stream is active at a time; fragments arriving
// while no stream is open are rejected at the socket level.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxprep/voxprep/pkg/capture"
)

// Ensure Bridge implements both interfaces at compile time.
var (
	_ capture.Source = (*Bridge)(nil)
	_ http.Handler   = (*Bridge)(nil)
)

// Bridge relays browser-side recognition results into capture streams.
// All methods are safe for concurrent use.
type Bridge struct {
	mu     sync.Mutex
	active *stream
}

// New returns a ready-to-mount [Bridge].
func New() *Bridge {
	return &Bridge{}
}

// Open starts a new capture stream that will be fed by the next WebSocket
// connection. Returns an error while a previous stream is still open.
// cfg is ignored: format and language live in the browser's recognition
// engine.
func (b *Bridge) Open(_ context.Context, _ capture.StreamConfig) (capture.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return nil, fmt.Errorf("browser: a capture stream is already open")
	}

	s := &stream{
		partials: make(chan capture.Fragment, 64),
		finals:   make(chan capture.Fragment, 64),
		done:     make(chan struct{}),
		detach:   b.detach,
	}
	b.active = s
	return s, nil
}

// detach clears the active stream slot so a later Open succeeds.
func (b *Bridge) detach(s *stream) {
	b.mu.Lock()
	if b.active == s {
		b.active = nil
	}
	b.mu.Unlock()
}

// current returns the active stream, or nil.
func (b *Bridge) current() *stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// wsMessage is a single recognition result pushed by the page.
type wsMessage struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ServeHTTP upgrades the request to a WebSocket and feeds incoming messages
// into the active stream. Connections arriving while no stream is open are
// closed with a policy violation.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	s := b.current()
	if s == nil {
		conn.Close(websocket.StatusPolicyViolation, "no active capture stream")
		return
	}

	// Unblock the read below when the stream is closed server-side.
	go func() {
		<-s.done
		conn.Close(websocket.StatusNormalClosure, "stream closed")
	}()

	for {
		typ, data, err := conn.Read(r.Context())
		if err != nil {
			select {
			case <-s.done:
				// Server-side close; not a capture failure.
			default:
				s.fail(fmt.Errorf("browser: connection lost: %w", err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		f := capture.Fragment{
			Text:       msg.Text,
			IsFinal:    msg.Type == "final",
			Confidence: msg.Confidence,
		}
		switch msg.Type {
		case "partial":
			if !s.dispatch(s.partials, f) {
				return
			}
		case "final":
			if !s.dispatch(s.finals, f) {
				return
			}
		}
	}
}

// stream implements capture.Stream for browser-fed sessions.
type stream struct {
	partials chan capture.Fragment
	finals   chan capture.Fragment
	done     chan struct{}
	detach   func(*stream)

	closeOnce sync.Once
	chOnce    sync.Once

	// sendMu serialises fragment sends against channel closure so Close can
	// never close a channel a dispatch is about to send on.
	sendMu sync.Mutex

	errMu sync.Mutex
	err   error
}

// dispatch delivers f on ch unless the stream has been closed. Reports false
// when the stream is done and the caller should stop feeding.
func (s *stream) dispatch(ch chan capture.Fragment, f capture.Fragment) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case ch <- f:
		return true
	case <-s.done:
		return false
	}
}

// SendAudio is not supported: the browser performs recognition itself.
func (s *stream) SendAudio([]byte) error {
	return fmt.Errorf("browser: %w", capture.ErrNotSupported)
}

// Partials returns the channel of interim fragments.
func (s *stream) Partials() <-chan capture.Fragment { return s.partials }

// Finals returns the channel of committed fragments.
func (s *stream) Finals() <-chan capture.Fragment { return s.finals }

// Err returns the error that terminated the stream, if any.
func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// fail records err and fully terminates the stream, including the done
// channel any connection watcher blocks on. Used when the feeding connection
// drops mid-session.
func (s *stream) fail(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
	s.Close()
}

// Close terminates the stream. Safe to call more than once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeChannels()
		s.detach(s)
	})
	return nil
}

// closeChannels closes both fragment channels exactly once, waiting out any
// in-flight dispatch.
func (s *stream) closeChannels() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.chOnce.Do(func() {
		close(s.partials)
		close(s.finals)
	})
}
