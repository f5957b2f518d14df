// Package cql parses a small textual query language into a query.Spec.
//
//	CONTAINS(Position, Team, Faction) WHERE Team = `{"label":"red"}` & Faction = ANY
//
// CONTAINS lists the required component types, the first being the projection type. Each WHERE filter names a
// shared component type from that list and either a JSON encoded value or ANY, which requires the type without
// constraining its value.
package cql

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/types"
)

// Resolver looks up registered component types by name. A query.Store is a Resolver.
type Resolver interface {
	Component(name string) (types.ComponentMetadata, error)
}

type cqlComponent struct {
	Name string `@Ident`
}

type cqlValue struct {
	Any  bool    `  @"ANY"`
	JSON *string `| @(String | RawString)`
}

type cqlFilter struct {
	Component string    `@Ident "="`
	Value     *cqlValue `@@`
}

type cqlQuery struct {
	Components []*cqlComponent `"CONTAINS" "(" @@ ("," @@)* ")"`
	Filters    []*cqlFilter    `( "WHERE" @@ ("&" @@)* )?`
}

// Display

func (v *cqlValue) String() string {
	if v.Any || v.JSON == nil {
		return "ANY"
	}
	return "`" + *v.JSON + "`"
}

func (f *cqlFilter) String() string {
	return f.Component + " = " + f.Value.String()
}

func (q *cqlQuery) String() string {
	names := make([]string, 0, len(q.Components))
	for _, c := range q.Components {
		names = append(names, c.Name)
	}
	out := "CONTAINS(" + strings.Join(names, ", ") + ")"
	if len(q.Filters) == 0 {
		return out
	}
	filters := make([]string, 0, len(q.Filters))
	for _, f := range q.Filters {
		filters = append(filters, f.String())
	}
	return out + " WHERE " + strings.Join(filters, " & ")
}

var internalCQLParser = participle.MustBuild[cqlQuery](participle.Unquote("String", "RawString"))

// Parse parses cqlText and resolves its component names and filter values through resolver. Syntax errors and
// malformed filters fail with types.ErrInvalidSpec, unknown component names with types.ErrUnknownType.
func Parse(cqlText string, resolver Resolver) (query.Spec, error) {
	ast, err := internalCQLParser.ParseString("", cqlText)
	if err != nil {
		return query.Spec{}, eris.Wrap(types.ErrInvalidSpec, err.Error())
	}

	spec := query.Spec{
		Required: make([]types.Component, 0, len(ast.Components)),
		Filters:  make([]query.Filter, 0, len(ast.Filters)),
	}
	for _, c := range ast.Components {
		meta, err := resolver.Component(c.Name)
		if err != nil {
			return query.Spec{}, err
		}
		spec.Required = append(spec.Required, meta)
	}

	for _, f := range ast.Filters {
		filter, err := toFilter(f, resolver)
		if err != nil {
			return query.Spec{}, err
		}
		spec.Filters = append(spec.Filters, filter)
	}

	if err := spec.Validate(); err != nil {
		return query.Spec{}, eris.Wrapf(err, "invalid query %q", ast.String())
	}
	return spec, nil
}

func toFilter(f *cqlFilter, resolver Resolver) (query.Filter, error) {
	meta, err := resolver.Component(f.Component)
	if err != nil {
		return query.Filter{}, err
	}
	if !meta.IsShared() {
		return query.Filter{}, eris.Wrapf(types.ErrInvalidSpec, "component %q is not a shared component", meta.Name())
	}
	if f.Value.Any || f.Value.JSON == nil {
		return query.Filter{Component: meta}, nil
	}

	value, err := meta.Decode([]byte(*f.Value.JSON))
	if err != nil {
		return query.Filter{}, eris.Wrapf(types.ErrInvalidSpec, "invalid value for %q: %v", meta.Name(), err)
	}
	return query.Filter{Component: meta, Value: value}, nil
}
