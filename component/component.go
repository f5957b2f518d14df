// Package component builds the metadata a store keeps for each registered component type: its name and id, whether
// it is shared, how it is encoded, and what its JSON schema looks like.
package component

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/types"
)

var _ types.ComponentMetadata = &metadata[types.Component]{}

// metadata represents a type of component. It is used to identify a component when getting or setting the component
// of an entity, and when naming it in a query.
type metadata[T types.Component] struct {
	isIDSet bool
	id      types.ComponentID
	typ     reflect.Type
	name    string
	shared  bool
}

// New creates the metadata of component type T.
func New[T types.Component]() types.ComponentMetadata {
	var t T
	_, shared := any(t).(types.SharedComponent)
	return &metadata[T]{
		typ:    reflect.TypeOf(t),
		name:   t.Name(),
		shared: shared,
	}
}

// SetID set's this component's ID. It must be unique across the store.
func (c *metadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Components are registered once per store, but tests often reuse metadata across stores. Allow
		// re-initialization as long as the ID doesn't change.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

// String returns the component type name.
func (c *metadata[T]) String() string {
	return c.name
}

// Name returns the component type name.
func (c *metadata[T]) Name() string {
	return c.name
}

// ID returns the component type id.
func (c *metadata[T]) ID() types.ComponentID {
	return c.id
}

func (c *metadata[T]) IsShared() bool {
	return c.shared
}

func (c *metadata[T]) Encode(v any) ([]byte, error) {
	if _, ok := v.(T); !ok {
		if _, ok := v.(*T); !ok {
			return nil, eris.Errorf("cannot encode %T as component %q of type %v", v, c.name, c.typ)
		}
	}
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrapf(err, "component %q must be json serializable", c.name)
	}
	return bz, nil
}

func (c *metadata[T]) Decode(bz []byte) (types.Component, error) {
	var comp T
	if err := json.Unmarshal(bz, &comp); err != nil {
		return nil, eris.Wrapf(err, "failed to decode component %q", c.name)
	}
	return comp, nil
}

func (c *metadata[T]) Schema() ([]byte, error) {
	var comp T
	return SerializeSchema(comp)
}
