package types

import (
	"math"

	"github.com/google/uuid"
)

// EntityID is a unique identifier for an entity.
type EntityID uint32

// MaxEntityID is the maximum entity ID that can be created.
const MaxEntityID = math.MaxUint32 - 1

// QueryHandle identifies one live query inside a store. A handle is never reused, so a released handle can not
// alias a newer query.
type QueryHandle uuid.UUID

// NewQueryHandle returns a fresh random handle.
func NewQueryHandle() QueryHandle {
	return QueryHandle(uuid.New())
}

func (h QueryHandle) String() string {
	return uuid.UUID(h).String()
}
