package alerts

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the discovery table for alert implementations. Each alert
// module registers a descriptor at startup and the engine iterates the
// table, no filesystem scanning involved. Dropping in a new alert means
// one new file plus one registration call.
type Registry struct {
	sync.Mutex
	descriptors map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register adds a descriptor to the table. Empty names, missing
// constructors and duplicate names are rejected, a rejected descriptor
// never shadows an already registered one.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || len(d.Name) == 0 {
		return fmt.Errorf("alert descriptor must have a name")
	}
	if d.New == nil {
		return fmt.Errorf("alert %q has no constructor", d.Name)
	}

	r.Lock()
	defer r.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("alert %q already registered", d.Name)
	}
	r.descriptors[d.Name] = d

	return nil
}

// Descriptors returns the registered descriptors sorted by name, so
// discovery order is stable across runs and processes.
func (r *Registry) Descriptors() []*Descriptor {
	r.Lock()
	defer r.Unlock()

	res := make([]*Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})

	return res
}

func (r *Registry) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.descriptors)
}

// default registry, mirrors the stdlib driver registration practice

var defaultRegistry = NewRegistry()

// Register adds a descriptor to the default registry.
func Register(d *Descriptor) error {
	return defaultRegistry.Register(d)
}

// Descriptors lists the default registry in stable name order.
func Descriptors() []*Descriptor {
	return defaultRegistry.Descriptors()
}
