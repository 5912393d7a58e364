package catalog

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
)

// ParamType is the JSON type of a tool parameter.
type ParamType int

const (
	StringParam ParamType = iota
	NumberParam
	IntegerParam
	BooleanParam
	ObjectParam
	ArrayParam
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
	Default     any
	Enum        []string
}

// ResultMode selects how the raw upstream result is normalised.
type ResultMode int

const (
	// ResultAsIs returns the upstream body unchanged.
	ResultAsIs ResultMode = iota
	// ResultList turns a non-list body into an empty list.
	ResultList
	// ResultID extracts the created identifier ("id" or "success.id").
	ResultID
	// ResultResolveRef classifies an exact-reference search as ok,
	// not_found or ambiguous.
	ResultResolveRef
)

// Descriptor is the static description of one operation.
//
// Contract:
//   - Cacheable descriptors have a positive TTL and no invalidation targets.
//   - Non-cacheable descriptors have a zero TTL.
//   - Descriptors are immutable once the Catalog is built.
type Descriptor struct {
	Name        string
	Description string
	Target      CallTarget

	Cacheable   bool
	TTL         time.Duration
	Invalidates []string

	// ResponseFields is the allow-list applied to results. Nil passes through.
	ResponseFields []string
	// Paginated results are wrapped with pagination metadata.
	Paginated bool
	// DefaultLimit is the page size reported when no limit argument is given.
	DefaultLimit int
	Result       ResultMode

	Params []Param
}

// TTLSeconds returns the TTL in whole seconds.
func (d Descriptor) TTLSeconds() int {
	return int(d.TTL / time.Second)
}

// Mutating reports whether a successful call changes upstream state.
func (d Descriptor) Mutating() bool {
	return !d.Cacheable
}

func (d Descriptor) validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if d.Cacheable {
		if d.TTL <= 0 {
			return fmt.Errorf("%w: %s is cacheable with ttl %s", ErrInvalidDescriptor, d.Name, d.TTL)
		}
		if len(d.Invalidates) > 0 {
			return fmt.Errorf("%w: %s is cacheable and invalidates %v", ErrInvalidDescriptor, d.Name, d.Invalidates)
		}
	} else if d.TTL != 0 {
		return fmt.Errorf("%w: %s is not cacheable but has ttl %s", ErrInvalidDescriptor, d.Name, d.TTL)
	}
	if !d.Target.Raw && (d.Target.Method == "" || d.Target.Path == "") {
		return fmt.Errorf("%w: %s has no call target", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// Catalog is a read-only lookup table from operation name to descriptor.
// It is safe for concurrent use because nothing mutates it after New.
type Catalog struct {
	byName map[string]Descriptor
	names  []string
}

// New builds a Catalog and checks every descriptor. Invalidation targets
// must name cacheable operations of the same catalog.
func New(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, d.Name)
		}
		d.Invalidates = slices.Clone(d.Invalidates)
		c.byName[d.Name] = d
		c.names = append(c.names, d.Name)
	}
	for _, d := range descriptors {
		for _, target := range d.Invalidates {
			t, ok := c.byName[target]
			if !ok {
				return nil, fmt.Errorf("%w: %s invalidates unknown %s", ErrInvalidDescriptor, d.Name, target)
			}
			if !t.Cacheable {
				return nil, fmt.Errorf("%w: %s invalidates non-cacheable %s", ErrInvalidDescriptor, d.Name, target)
			}
		}
	}
	sort.Strings(c.names)
	return c, nil
}

// MustNew is New that panics on error. Intended for static tables.
func MustNew(descriptors ...Descriptor) *Catalog {
	c, err := New(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	return MustNew(defaultDescriptors()...)
})

// Default returns the built-in operation table.
func Default() *Catalog {
	return defaultCatalog()
}

// Describe returns the descriptor for name.
func (c *Catalog) Describe(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// TTLFor returns the TTL for name, or 0 when unknown or not cacheable.
func (c *Catalog) TTLFor(name string) time.Duration {
	d, ok := c.byName[name]
	if !ok || !d.Cacheable {
		return 0
	}
	return d.TTL
}

// InvalidationTargetsFor returns a copy of the invalidation set of name,
// or nil when unknown.
func (c *Catalog) InvalidationTargetsFor(name string) []string {
	d, ok := c.byName[name]
	if !ok {
		return nil
	}
	return slices.Clone(d.Invalidates)
}

// Names returns every operation name, sorted.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of operations.
func (c *Catalog) Len() int {
	return len(c.names)
}
