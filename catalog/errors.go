package catalog

import "errors"

var (
	// ErrEmptyName is returned for a descriptor without a name.
	ErrEmptyName = errors.New("catalog: empty operation name")

	// ErrDuplicate is returned when two descriptors share a name.
	ErrDuplicate = errors.New("catalog: duplicate operation")

	// ErrInvalidDescriptor is returned when a descriptor breaks the
	// cacheability, TTL or invalidation rules.
	ErrInvalidDescriptor = errors.New("catalog: invalid descriptor")
)
