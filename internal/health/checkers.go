package health

import (
	"context"
	"errors"

	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/pkg/capture"
)

// CaptureReady returns a [Checker] that verifies a capture source has been
// configured. It does not open a stream; a configured source is considered
// ready.
func CaptureReady(src capture.Source) Checker {
	return Checker{
		Name: "capture",
		Check: func(context.Context) error {
			if src == nil {
				return errors.New("no capture source configured")
			}
			return nil
		},
	}
}

// GrammarReady returns a [Checker] that probes the grammar service. Register
// it only when a grammar client is configured; an unconfigured grammar
// service is an expected deployment, not an unreadiness.
func GrammarReady(c *grammar.Client) Checker {
	return Checker{
		Name: "grammar",
		Check: func(ctx context.Context) error {
			if c == nil {
				return errors.New("no grammar client configured")
			}
			return c.Ping(ctx)
		},
	}
}
