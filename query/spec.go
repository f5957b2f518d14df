package query

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/types"
)

// Filter narrows a query on one shared component type. A nil Value leaves the slot unconstrained: entities are
// included regardless of their shared value, as long as they carry the type.
type Filter struct {
	Component types.Component
	Value     types.Component
}

// Constrained reports whether the filter carries a concrete value.
func (f Filter) Constrained() bool {
	return f.Value != nil
}

// Spec describes one query: the component types every matching entity must carry, the shared filters narrowing the
// match, and an optional where expression. The first required type is the projection type, the one whose values
// singleton and list projections return.
type Spec struct {
	Required []types.Component
	Filters  []Filter
	Where    string
}

// Projection returns the projection type of the spec, or nil if the spec has no required types.
func (s Spec) Projection() types.Component {
	if len(s.Required) == 0 {
		return nil
	}
	return s.Required[0]
}

// Validate checks the structure of the spec without consulting a store.
func (s Spec) Validate() error {
	if len(s.Required) == 0 {
		return eris.Wrap(types.ErrInvalidSpec, "at least one required component type is needed")
	}

	seen := make(map[string]struct{}, len(s.Required))
	for _, c := range s.Required {
		if c == nil || c.Name() == "" {
			return eris.Wrap(types.ErrInvalidSpec, "component name cannot be empty")
		}
		if _, ok := seen[c.Name()]; ok {
			return eris.Wrapf(types.ErrInvalidSpec, "duplicate required component %q", c.Name())
		}
		seen[c.Name()] = struct{}{}
	}

	filtered := make(map[string]struct{}, len(s.Filters))
	for _, f := range s.Filters {
		if f.Component == nil {
			return eris.Wrap(types.ErrInvalidSpec, "filter must name a component")
		}
		name := f.Component.Name()
		if _, ok := seen[name]; !ok {
			return eris.Wrapf(types.ErrInvalidSpec, "filter on %q which is not a required component", name)
		}
		if _, ok := filtered[name]; ok {
			return eris.Wrapf(types.ErrInvalidSpec, "duplicate filter on %q", name)
		}
		filtered[name] = struct{}{}
		if f.Constrained() && f.Value.Name() != name {
			return eris.Wrapf(types.ErrInvalidSpec, "filter on %q has a value of %q", name, f.Value.Name())
		}
	}
	return nil
}

// Names returns the names of the required component types in order.
func (s Spec) Names() []string {
	names := make([]string, 0, len(s.Required))
	for _, c := range s.Required {
		names = append(names, c.Name())
	}
	return names
}
