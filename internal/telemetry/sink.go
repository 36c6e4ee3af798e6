package telemetry

import (
	"fmt"
	"sync"

	"pulsepc/internal/logger"
)

// Listener is notified after a snapshot is published. It runs on the
// publishing goroutine and must return quickly.
type Listener func(*Snapshot)

type subscription struct {
	id uint64
	fn Listener
}

// Sink holds the latest snapshot per category and hands it to consumers
type Sink struct {
	mu     sync.RWMutex
	latest [categoryCount]*Snapshot
	subs   [categoryCount][]subscription
	nextID uint64
}

// NewSink creates an empty sink
func NewSink() *Sink {
	return &Sink{}
}

// Publish replaces the snapshot of its category. Snapshots not newer than
// the current one are rejected so readers never go backwards.
func (s *Sink) Publish(snap *Snapshot) error {
	if snap == nil || !snap.category.Valid() {
		return fmt.Errorf("publish: invalid snapshot")
	}
	c := snap.category

	s.mu.Lock()
	if cur := s.latest[c]; cur != nil && snap.sequence <= cur.sequence {
		s.mu.Unlock()
		return fmt.Errorf("publish %s: sequence %d not newer than %d", c, snap.sequence, cur.sequence)
	}
	s.latest[c] = snap
	subs := append([]subscription(nil), s.subs[c]...)
	s.mu.Unlock()

	for _, sub := range subs {
		notify(sub.fn, snap)
	}
	return nil
}

func notify(fn Listener, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot listener for %s panicked: %v", snap.category, r)
		}
	}()
	fn(snap)
}

// Get returns the last published snapshot of c. Before the first publish it
// returns a sequence-0 placeholder, never nil.
func (s *Sink) Get(c Category) *Snapshot {
	if !c.Valid() {
		return emptySnapshot(c)
	}
	s.mu.RLock()
	snap := s.latest[c]
	s.mu.RUnlock()
	if snap == nil {
		return emptySnapshot(c)
	}
	return snap
}

// Changed returns the current snapshot of c if its sequence differs from lastSeq
func (s *Sink) Changed(c Category, lastSeq uint64) (*Snapshot, bool) {
	snap := s.Get(c)
	if snap.sequence == lastSeq {
		return nil, false
	}
	return snap, true
}

// Subscribe registers fn for publishes of c and returns a function that
// removes the registration
func (s *Sink) Subscribe(c Category, fn Listener) (unsubscribe func()) {
	if !c.Valid() || fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[c] = append(s.subs[c], subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.subs[c]
			for i, sub := range list {
				if sub.id == id {
					s.subs[c] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// SubscribeAll registers fn for every category
func (s *Sink) SubscribeAll(fn Listener) (unsubscribe func()) {
	var unsubs []func()
	for _, c := range AllCategories() {
		unsubs = append(unsubs, s.Subscribe(c, fn))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
