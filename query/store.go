package query

import "github.com/argus-labs/ecsquery/types"

// Store is what the builder and the projector need from an entity store. Component types are registered with the
// store beforehand, queries only resolve them by name.
//
// A handle returned by CreateQuery is owned by the caller until it is passed to ReleaseQuery. Entities and values
// materialized from one handle, against an unmodified store, come out in the same storage-defined order.
type Store interface {
	// Component returns the metadata of a registered component type, or an error wrapping types.ErrUnknownType.
	Component(name string) (types.ComponentMetadata, error)

	CreateQuery(ids []types.ComponentID) (types.QueryHandle, error)
	ApplySharedFilter(h types.QueryHandle, filters []types.SharedValue) error
	ApplyWhere(h types.QueryHandle, expression string) error
	ReleaseQuery(h types.QueryHandle) error

	ReadSingletonValue(h types.QueryHandle, id types.ComponentID) (types.Component, error)
	ReadSingletonEntity(h types.QueryHandle) (types.EntityID, error)
	CountMatches(h types.QueryHandle) (int, error)
	MaterializeEntities(h types.QueryHandle, dst []types.EntityID) ([]types.EntityID, error)
	MaterializeValues(h types.QueryHandle, id types.ComponentID, dst []types.Component) ([]types.Component, error)
}
