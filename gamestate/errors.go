package gamestate

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound is returned when attempting to operate on a non-existent entity.
	ErrEntityNotFound = eris.New("entity does not exist")

	// ErrComponentNotOnEntity is returned when reading or removing a component the entity doesn't carry.
	ErrComponentNotOnEntity = eris.New("component not on entity")

	// ErrQueryNotFound is returned for operations on a query handle that was never created or already released.
	ErrQueryNotFound = eris.New("query handle not found")
)
