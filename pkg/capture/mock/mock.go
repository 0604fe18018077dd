// Package mock provides test doubles for the capture package interfaces.
//
// Use Source to verify that the caller opens streams with the expected
// StreamConfig. Use Stream to feed controlled Fragment values and inspect
// which audio chunks were delivered.
//
// Example:
//
//	st := &mock.Stream{
//	    PartialsCh: make(chan capture.Fragment, 1),
//	    FinalsCh:   make(chan capture.Fragment, 1),
//	}
//	src := &mock.Source{Stream: st}
//	stream, _ := src.Open(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/voxprep/voxprep/pkg/capture"
)

// OpenCall records a single invocation of Source.Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Cfg is the StreamConfig passed to Open.
	Cfg capture.StreamConfig
}

// Source is a mock implementation of capture.Source.
type Source struct {
	mu sync.Mutex

	// Stream is returned by Open. If nil, Open returns a new default Stream
	// with buffered channels.
	Stream capture.Stream

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open.
	OpenCalls []OpenCall
}

// Open records the call and returns Stream, OpenErr.
func (s *Source) Open(ctx context.Context, cfg capture.StreamConfig) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls = append(s.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if s.Stream != nil {
		return s.Stream, nil
	}
	return &Stream{
		PartialsCh: make(chan capture.Fragment, 16),
		FinalsCh:   make(chan capture.Fragment, 16),
	}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.OpenCalls = nil
}

// Ensure Source implements capture.Source at compile time.
var _ capture.Source = (*Source)(nil)

// SendAudioCall records a single invocation of Stream.SendAudio.
type SendAudioCall struct {
	// Chunk is a copy of the audio bytes passed to SendAudio.
	Chunk []byte
}

// Stream is a mock implementation of capture.Stream.
// Callers should pre-populate PartialsCh and FinalsCh with the Fragment
// values they want the consumer to receive, then close them when done.
type Stream struct {
	mu sync.Mutex

	// PartialsCh is the channel returned by Partials(). Callers own this
	// channel and are responsible for sending to and closing it in tests.
	PartialsCh chan capture.Fragment

	// FinalsCh is the channel returned by Finals(). Callers own this channel.
	FinalsCh chan capture.Fragment

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// StreamErr is returned by Err.
	StreamErr error

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	// SendAudioCalls records every call to SendAudio in order.
	SendAudioCalls []SendAudioCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// SendAudio records the call and returns SendAudioErr.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SendAudioCalls = append(s.SendAudioCalls, SendAudioCall{Chunk: cp})
	return s.SendAudioErr
}

// Partials returns PartialsCh. The caller must have initialised PartialsCh
// before calling this method.
func (s *Stream) Partials() <-chan capture.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PartialsCh
}

// Finals returns FinalsCh.
func (s *Stream) Finals() <-chan capture.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FinalsCh
}

// Err returns StreamErr.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StreamErr
}

// Close records the call and returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// ResetCalls clears all recorded calls. Thread-safe.
func (s *Stream) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SendAudioCalls = nil
	s.CloseCallCount = 0
}

// Ensure Stream implements capture.Stream at compile time.
var _ capture.Stream = (*Stream)(nil)
