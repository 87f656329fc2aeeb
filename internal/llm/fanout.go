package llm

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one provider call during a fan-out.
type Result struct {
	Provider string
	Text     string
	Err      error
	// Canceled is set when the call ended because the parent context was
	// canceled rather than because the provider failed.
	Canceled bool
	Elapsed  time.Duration
}

// FanOut sends prompt to every provider in parallel, each bounded by
// timeout, and waits for all of them. A failing provider never cancels its
// siblings. Results are returned in provider order.
func FanOut(ctx context.Context, providers []Provider, prompt string, timeout time.Duration) []Result {
	results := make([]Result, len(providers))
	var g errgroup.Group

	for i, p := range providers {
		g.Go(func() error {
			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			text, err := p.Complete(callCtx, prompt)
			results[i] = Result{
				Provider: p.Name(),
				Text:     text,
				Err:      err,
				Canceled: err != nil && ctx.Err() != nil,
				Elapsed:  time.Since(start),
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
