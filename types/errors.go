package types

import "github.com/rotisserie/eris"

var (
	// ErrInvalidSpec is returned for a malformed combination of required types and filters.
	ErrInvalidSpec = eris.New("invalid query specification")

	// ErrUnknownType is returned when a query names a component type the store has not registered.
	ErrUnknownType = eris.New("component type is not registered")

	// ErrNotSingleton is returned by singleton projections when zero or more than one entity matches.
	// It is a query result condition, callers are expected to handle it as control flow.
	ErrNotSingleton = eris.New("query does not match exactly one entity")

	// ErrStoreFailure wraps any other failure surfaced from the underlying entity store.
	ErrStoreFailure = eris.New("entity store failure")
)
