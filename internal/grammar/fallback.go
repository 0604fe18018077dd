package grammar

import (
	"context"

	"github.com/voxprep/voxprep/internal/resilience"
)

var _ Checker = (*Fallback)(nil)

// Fallback is a [Checker] that tries a primary grammar endpoint and falls
// back to alternates in registration order when it fails or its circuit is
// open. Deployments that pair a local LanguageTool container with a hosted
// instance use this to keep suggestions flowing while one of them is down.
type Fallback struct {
	chain *resilience.Chain[Checker]
}

// NewFallback creates a Fallback with primary as the first endpoint.
func NewFallback(primaryName string, primary Checker, cfg resilience.ChainConfig) *Fallback {
	return &Fallback{
		chain: resilience.NewChain[Checker](primaryName, primary, cfg),
	}
}

// Add appends an alternate endpoint tried after the primary.
func (f *Fallback) Add(name string, c Checker) {
	f.chain.Add(name, c)
}

// Check queries the first healthy endpoint. All endpoints failing yields an
// error wrapping [resilience.ErrExhausted]; callers treat it like any other
// grammar failure and degrade to zero suggestions.
func (f *Fallback) Check(ctx context.Context, text string) ([]Suggestion, error) {
	return resilience.DoWithResult(f.chain, func(c Checker) ([]Suggestion, error) {
		return c.Check(ctx, text)
	})
}
