package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultProviderTimeout bounds provider calls registered without a timeout
const DefaultProviderTimeout = 5 * time.Second

// RegistryBuilder collects descriptors before the registry is frozen
type RegistryBuilder struct {
	descriptors    []Descriptor
	defaultTimeout time.Duration
}

// NewRegistryBuilder creates a builder using defaultTimeout for providers
// that do not declare their own
func NewRegistryBuilder(defaultTimeout time.Duration) *RegistryBuilder {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultProviderTimeout
	}
	return &RegistryBuilder{defaultTimeout: defaultTimeout}
}

// Register adds a descriptor
func (b *RegistryBuilder) Register(d Descriptor) *RegistryBuilder {
	b.descriptors = append(b.descriptors, d)
	return b
}

// Add is shorthand for registering p under category c
func (b *RegistryBuilder) Add(c Category, priority int, mode MergeMode, p Provider) *RegistryBuilder {
	return b.Register(Descriptor{Category: c, Priority: priority, Mode: mode, Provider: p})
}

// Build validates the descriptors and returns a read-only registry.
// Every category must have at least one provider, all providers of a category
// must agree on the merge mode, and priorities within a category must be unique.
func (b *RegistryBuilder) Build() (*Registry, error) {
	r := &Registry{}
	names := make(map[string]bool)
	var errs []error

	for _, d := range b.descriptors {
		if !d.Category.Valid() {
			errs = append(errs, fmt.Errorf("provider %q: invalid category %d", d.Name(), d.Category))
			continue
		}
		if d.Provider == nil || d.Name() == "" {
			errs = append(errs, fmt.Errorf("%s: provider without a name", d.Category))
			continue
		}
		key := d.Category.String() + "/" + d.Name()
		if names[key] {
			errs = append(errs, fmt.Errorf("%s: provider %q registered twice", d.Category, d.Name()))
			continue
		}
		names[key] = true
		if d.Timeout <= 0 {
			d.Timeout = b.defaultTimeout
		}
		r.byCategory[d.Category] = append(r.byCategory[d.Category], d)
	}

	for _, c := range AllCategories() {
		list := r.byCategory[c]
		if len(list) == 0 {
			errs = append(errs, fmt.Errorf("%s: no provider registered", c))
			continue
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
		for i := 1; i < len(list); i++ {
			if list[i].Mode != list[0].Mode {
				errs = append(errs, fmt.Errorf("%s: provider %q uses %s but %q uses %s",
					c, list[i].Name(), list[i].Mode, list[0].Name(), list[0].Mode))
			}
			if list[i].Priority == list[i-1].Priority {
				errs = append(errs, fmt.Errorf("%s: providers %q and %q share priority %d",
					c, list[i-1].Name(), list[i].Name(), list[i].Priority))
			}
		}
		r.modes[c] = list[0].Mode
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid provider registry: %w", errors.Join(errs...))
	}
	return r, nil
}

// Registry is the process-wide provider table. It is never modified after
// Build, so concurrent reads need no locking.
type Registry struct {
	byCategory [categoryCount][]Descriptor
	modes      [categoryCount]MergeMode
}

// Providers returns the descriptors of c in ascending priority
func (r *Registry) Providers(c Category) []Descriptor {
	if !c.Valid() {
		return nil
	}
	return append([]Descriptor(nil), r.byCategory[c]...)
}

// Mode returns the merge mode of c
func (r *Registry) Mode(c Category) MergeMode {
	if !c.Valid() {
		return WinnerTakesAll
	}
	return r.modes[c]
}
