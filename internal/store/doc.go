// Package store defines interfaces for the optional hit history (runs and the
// hits they reported). Implementations live in other packages; this package
// must not import database drivers or concrete clients.
package store
