// Package capture defines the Source interface for live transcription
// backends.
//
// A Source wraps a speech-recognition service and exposes a uniform streaming
// interface. Once opened, a [Stream] emits two channels of [Fragment] values:
// low-latency partials that replace one another as the recognizer refines its
// guess, and authoritative finals whose concatenation forms the settled
// transcript of the session. The scoring core only ever consumes finals; the
// partials exist to drive live UI updates.
//
// Two shipped implementations cover the common setups: deepgram streams raw
// browser audio to a cloud recognizer, and browser accepts ready-made text
// fragments from a recognition engine running in the page itself. The mock
// subpackage provides a test double.
//
// Implementations must be safe for concurrent use.
package capture

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by [Source.Open] when the backing recognition
// service cannot run in the current environment or configuration. Callers
// should surface this to the user instead of starting a session.
var ErrUnavailable = errors.New("capture: source unavailable")

// ErrNotSupported is returned by [Stream.SendAudio] on sources that consume
// text fragments rather than raw audio.
var ErrNotSupported = errors.New("capture: operation not supported")

// StreamConfig describes the recognition hints and audio format for a new
// capture stream.
type StreamConfig struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// Empty lets the source auto-detect, if supported.
	Language string

	// SampleRate is the PCM sample rate in Hz for audio-fed sources.
	// Ignored by text-fed sources.
	SampleRate int

	// Channels is the PCM channel count for audio-fed sources. Most
	// recognizers require mono.
	Channels int
}

// Fragment is a single transcription result delivered by a [Stream].
type Fragment struct {
	// Text is the transcribed content. For partials it replaces any earlier
	// partial; for finals it is appended to the settled transcript.
	Text string

	// IsFinal reports whether the recognizer has committed to this text.
	IsFinal bool

	// Confidence is the recognizer's confidence (0.0 to 1.0), zero when the
	// source does not report one.
	Confidence float64

	// Timestamp marks when the utterance started, relative to stream open.
	// Zero when the source does not report timing.
	Timestamp time.Duration
}

// Stream is an open capture session. Callers must call Close when done;
// failing to do so may leak goroutines and connections inside the source.
// All methods must be safe for concurrent use.
type Stream interface {
	// SendAudio delivers a chunk of raw PCM audio to the recognizer. The
	// chunk must match the StreamConfig format. Text-fed sources return
	// ErrNotSupported; closed streams return an error.
	SendAudio(chunk []byte) error

	// Partials returns the channel of interim fragments. Closed when the
	// stream ends.
	Partials() <-chan Fragment

	// Finals returns the channel of committed fragments. Closed when the
	// stream ends.
	Finals() <-chan Fragment

	// Err returns the error that terminated the stream, if any. It is only
	// meaningful after both fragment channels have been closed. A nil result
	// means the stream ended through Close.
	Err() error

	// Close terminates the stream and releases its resources. After Close
	// returns, both fragment channels are closed. Calling Close more than
	// once is safe and returns nil.
	Close() error
}

// Source is the abstraction over any transcription backend.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Open starts a new capture stream. The returned Stream is ready
	// immediately. Returns ErrUnavailable (possibly wrapped) when the
	// backend cannot serve the current environment.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}
