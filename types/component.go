package types

// ComponentID is the identifier a store assigns to a component type when it is registered.
type ComponentID uint32

// Component is the interface that all components must implement.
// Components are pure data containers that can be attached to entities.
type Component interface {
	// Name returns a unique string identifier for the component type.
	// This should be consistent across program executions.
	Name() string
}

// SharedComponent is a component whose value is shared by many entities. Entities carrying the same
// value (compared by its serialized form) can be selected together with a shared filter.
type SharedComponent interface {
	Component
	// Shared marks the type as a shared component. It is never called.
	Shared()
}

// ComponentMetadata wraps the user-defined Component struct and provides functionalities that is used internally
// by the store and the query builder.
type ComponentMetadata interface { //revive:disable-line:exported
	// SetID sets the ID of this component. It must only be set once.
	SetID(ComponentID) error
	// ID returns the ID of the component.
	ID() ComponentID
	// IsShared reports whether the component type implements SharedComponent.
	IsShared() bool
	Encode(any) ([]byte, error)
	Decode([]byte) (Component, error)
	// Schema returns the JSON schema of the component struct.
	Schema() ([]byte, error)

	Component
}

// SharedValue is a concrete shared component value used to narrow a query to the entities that share it.
type SharedValue struct {
	ID    ComponentID
	Value Component
}
