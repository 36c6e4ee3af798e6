package telemetry

import (
	"context"
	"time"

	"pulsepc/internal/logger"
)

// Chain runs the providers of one category in priority order
type Chain struct {
	category    Category
	mode        MergeMode
	descriptors []Descriptor
	diag        *Diagnostics
}

// NewChain builds the chain for c from the registry
func NewChain(r *Registry, c Category, diag *Diagnostics) *Chain {
	return &Chain{
		category:    c,
		mode:        r.Mode(c),
		descriptors: r.Providers(c),
		diag:        diag,
	}
}

// Category returns the category the chain resolves
func (ch *Chain) Category() Category { return ch.category }

// Run resolves the category. It never fails: when no provider produces
// anything usable the category placeholder is returned. The returned set is
// owned by the caller.
func (ch *Chain) Run(ctx context.Context) *Metrics {
	var merged *Metrics

	for _, d := range ch.descriptors {
		if ctx.Err() != nil {
			break
		}
		res := ch.invoke(ctx, d)
		if !res.Usable() {
			continue
		}

		if ch.mode == WinnerTakesAll {
			return res.Metrics.Clone()
		}
		if merged == nil {
			merged = res.Metrics.Clone()
		} else {
			merged.FillFrom(res.Metrics)
		}
	}

	if merged.Empty() {
		return Placeholder(ch.category)
	}
	return merged
}

func (ch *Chain) invoke(ctx context.Context, d Descriptor) Result {
	start := time.Now()
	res := Invoke(ctx, d.Provider, d.Timeout)
	if res.Status == StatusFailed && res.Err == nil {
		res = Failed(nil)
	}
	ch.diag.Record(ch.category, d.Name(), res, time.Since(start))

	switch res.Status {
	case StatusFailed:
		logger.Debug("%s: provider %s failed: %v", ch.category, d.Name(), res.Err)
	case StatusSuccess:
		if res.Metrics.Empty() {
			logger.Debug("%s: provider %s: %v", ch.category, d.Name(), ErrEmptyResult)
		}
	}
	return res
}
