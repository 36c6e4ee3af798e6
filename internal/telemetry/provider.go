package telemetry

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Provider is a single query strategy for one category. Implementations must
// honour ctx and must not mutate shared state.
type Provider interface {
	Name() string
	Collect(ctx context.Context) Result
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc struct {
	ID string
	Fn func(ctx context.Context) Result
}

func (p ProviderFunc) Name() string { return p.ID }

func (p ProviderFunc) Collect(ctx context.Context) Result { return p.Fn(ctx) }

// MergeMode selects how a category combines provider output
type MergeMode uint8

const (
	// WinnerTakesAll stops at the first provider with non-empty metrics
	WinnerTakesAll MergeMode = iota
	// UnionMerge runs every provider; higher priority wins key conflicts
	UnionMerge
)

func (m MergeMode) String() string {
	if m == UnionMerge {
		return "union"
	}
	return "winner-takes-all"
}

// Descriptor is the static registration record for a provider
type Descriptor struct {
	Category Category
	Priority int
	Mode     MergeMode
	// Timeout bounds a single Collect call; zero means the registry default
	Timeout  time.Duration
	Provider Provider
}

// Name returns the provider name
func (d Descriptor) Name() string {
	if d.Provider == nil {
		return ""
	}
	return d.Provider.Name()
}

// Invoke calls p bounded by timeout. Panics are converted to failures and a
// result arriving after the deadline is discarded.
func Invoke(ctx context.Context, p Provider, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed(fmt.Errorf("%w: %v\n%s", ErrProviderPanic, r, debug.Stack()))
			}
		}()
		done <- p.Collect(ctx)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Failed(fmt.Errorf("%s: %w after %v", p.Name(), ErrTimeout, timeout))
		}
		return Failed(fmt.Errorf("%s: %w", p.Name(), ctx.Err()))
	}
}
