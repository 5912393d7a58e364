// Package catalog is the static operation table of the service.
//
// Each Descriptor names one tool operation and declares its upstream
// CallTarget, whether results are cacheable and for how long, which cached
// operations a successful mutation invalidates, and how raw results are
// shaped (field allow-lists, pagination, identifier extraction).
//
// The table is built once by Default and is read-only afterwards, so a
// *Catalog needs no synchronization.
package catalog
