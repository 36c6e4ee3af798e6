package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pulsepc/internal/logger"
)

// SchedulerState is Idle when no dynamic category is requested, Active otherwise
type SchedulerState uint8

const (
	Idle SchedulerState = iota
	Active
)

func (s SchedulerState) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// SchedulerConfig tunes the refresh loop
type SchedulerConfig struct {
	// Interval is the minimum time between the starts of two cycles
	Interval time.Duration
	// IdlePoll is how often an idle loop checks for reactivation
	IdlePoll time.Duration
	// Grace is how long Stop waits for an in-flight cycle before cancelling it
	Grace time.Duration
	// Dynamic lists the categories eligible for periodic refresh
	Dynamic []Category
}

// DefaultSchedulerConfig returns the stock timings
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: 2 * time.Second,
		IdlePoll: 250 * time.Millisecond,
		Grace:    3 * time.Second,
		Dynamic:  DefaultDynamicCategories(),
	}
}

type categorySet [categoryCount]bool

func (cs *categorySet) list() []Category {
	var out []Category
	for c, on := range cs {
		if on {
			out = append(out, Category(c))
		}
	}
	return out
}

// Scheduler periodically re-resolves the active dynamic categories and
// publishes the results to a sink
type Scheduler struct {
	cfg       SchedulerConfig
	resolver  *Resolver
	assembler *Assembler
	sink      *Sink

	dynamic categorySet
	active  atomic.Pointer[categorySet]
	wake    chan struct{}

	// serializes resolve+publish per category between cycles and Refresh
	inflight [categoryCount]sync.Mutex

	cycles atomic.Uint64

	mu         sync.Mutex
	started    bool
	stopLoop   context.CancelFunc
	cancelWork context.CancelFunc
	done       chan struct{}
}

// NewScheduler wires a scheduler; call Start to launch the loop
func NewScheduler(cfg SchedulerConfig, r *Resolver, a *Assembler, sink *Sink) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = def.IdlePoll
	}
	if cfg.Grace <= 0 {
		cfg.Grace = def.Grace
	}
	if cfg.Dynamic == nil {
		cfg.Dynamic = def.Dynamic
	}

	s := &Scheduler{
		cfg:       cfg,
		resolver:  r,
		assembler: a,
		sink:      sink,
		wake:      make(chan struct{}, 1),
	}
	for _, c := range cfg.Dynamic {
		if c.Valid() {
			s.dynamic[c] = true
		}
	}
	s.active.Store(&categorySet{})
	return s
}

// IsDynamic reports whether c is refreshed periodically
func (s *Scheduler) IsDynamic(c Category) bool {
	return c.Valid() && s.dynamic[c]
}

// SetActiveCategories replaces the set of categories to refresh. Static
// categories are ignored. The call never blocks; changes take effect on the
// next cycle without resetting the cycle timer.
func (s *Scheduler) SetActiveCategories(cats ...Category) {
	next := &categorySet{}
	for _, c := range cats {
		if s.IsDynamic(c) {
			next[c] = true
		}
	}
	prev := s.active.Swap(next)
	if *prev == *next {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ActiveCategories returns the current active set
func (s *Scheduler) ActiveCategories() []Category {
	return s.active.Load().list()
}

// State returns Idle or Active
func (s *Scheduler) State() SchedulerState {
	if len(s.ActiveCategories()) == 0 {
		return Idle
	}
	return Active
}

// Cycles returns how many refresh cycles have run
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// Start launches the background loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	loopCtx, stopLoop := context.WithCancel(ctx)
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	s.stopLoop = stopLoop
	s.cancelWork = cancelWork
	s.done = make(chan struct{})

	go s.run(loopCtx, workCtx)
}

// Stop stops accepting new cycles, waits up to the grace period for the
// in-flight cycle, cancels it if still running, and joins the loop
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	stopLoop, cancelWork, done := s.stopLoop, s.cancelWork, s.done
	s.mu.Unlock()

	stopLoop()
	select {
	case <-done:
	case <-time.After(s.cfg.Grace):
		logger.Warning("refresh cycle still running after %v, cancelling", s.cfg.Grace)
		cancelWork()
		<-done
	}
	cancelWork()
}

// Done is closed once the loop has exited
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) run(loopCtx, workCtx context.Context) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("refresh loop panicked: %v", r)
		}
	}()

	logger.Debug("refresh loop started (interval %v)", s.cfg.Interval)
	for {
		set := s.active.Load().list()
		if len(set) == 0 {
			select {
			case <-loopCtx.Done():
				logger.Debug("refresh loop stopped")
				return
			case <-s.wake:
			case <-time.After(s.cfg.IdlePoll):
			}
			continue
		}

		start := time.Now()
		s.runCycle(workCtx, set)
		s.cycles.Add(1)

		wait := s.cfg.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-loopCtx.Done():
			logger.Debug("refresh loop stopped")
			return
		case <-time.After(wait):
		}
	}
}

// runCycle resolves every category in set concurrently, bounded by the set size
func (s *Scheduler) runCycle(ctx context.Context, set []Category) {
	var g errgroup.Group
	g.SetLimit(len(set))
	for _, c := range set {
		c := c
		g.Go(func() error {
			if err := s.refresh(ctx, c); err != nil {
				logger.Warning("refresh %s skipped, keeping previous snapshot: %v", c, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Refresh resolves c once and publishes the result. Used for static
// categories, which are resolved on demand rather than on a timer.
func (s *Scheduler) Refresh(ctx context.Context, c Category) (*Snapshot, error) {
	if err := s.refresh(ctx, c); err != nil {
		return nil, err
	}
	return s.sink.Get(c), nil
}

func (s *Scheduler) refresh(ctx context.Context, c Category) (err error) {
	if !c.Valid() {
		return errors.New("invalid category")
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic during refresh")
			logger.Error("refresh %s panicked: %v", c, r)
		}
	}()

	s.inflight[c].Lock()
	defer s.inflight[c].Unlock()

	m, err := s.resolver.Resolve(ctx, c)
	if err != nil {
		return err
	}
	return s.sink.Publish(s.assembler.Assemble(c, m))
}
