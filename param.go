package ecsquery

import (
	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/types"
)

// Param adds a constraint to the query a facade call runs.
type Param func(*query.Spec)

// With requires matching entities to carry component T.
func With[T types.Component]() Param {
	return func(spec *query.Spec) {
		var zero T
		spec.Required = append(spec.Required, zero)
	}
}

// Shared requires matching entities to carry shared component T with a value equal to value.
func Shared[T types.SharedComponent](value T) Param {
	return func(spec *query.Spec) {
		var zero T
		spec.Required = append(spec.Required, zero)
		spec.Filters = append(spec.Filters, query.Filter{Component: zero, Value: value})
	}
}

// SharedAny requires matching entities to carry shared component T, whatever its value.
func SharedAny[T types.SharedComponent]() Param {
	return func(spec *query.Spec) {
		var zero T
		spec.Required = append(spec.Required, zero)
		spec.Filters = append(spec.Filters, query.Filter{Component: zero})
	}
}

// Where narrows the match with an expr boolean expression. Components are available under their names and the
// entity id under "_id", e.g. `Health.Value > 10 && _id != 0`. Several expressions must all hold.
func Where(expression string) Param {
	return func(spec *query.Spec) {
		spec.Where = and(spec.Where, expression)
	}
}

// FromSpec merges a prebuilt spec, e.g. one parsed by the cql package.
func FromSpec(other query.Spec) Param {
	return func(spec *query.Spec) {
		spec.Required = append(spec.Required, other.Required...)
		spec.Filters = append(spec.Filters, other.Filters...)
		spec.Where = and(spec.Where, other.Where)
	}
}

func and(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return "(" + a + ") && (" + b + ")"
	}
}

func buildSpec(params []Param) query.Spec {
	spec := query.Spec{}
	for _, p := range params {
		p(&spec)
	}
	return spec
}

// withProjection makes T the projection type of the spec. An entry for T already in the required list is moved
// to the front, otherwise T is prepended.
func withProjection[T types.Component](spec query.Spec) query.Spec {
	var zero T
	required := make([]types.Component, 0, len(spec.Required)+1)
	required = append(required, zero)
	moved := false
	for _, c := range spec.Required {
		if !moved && c != nil && c.Name() == zero.Name() {
			required[0] = c
			moved = true
			continue
		}
		required = append(required, c)
	}
	spec.Required = required
	return spec
}
