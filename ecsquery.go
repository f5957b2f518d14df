// Package ecsquery answers common entity queries in a single call: the value or entity of a singleton, the
// number of matches, or the full list of matching entities or component values.
//
// Every call builds one store query from its params, projects the result, and releases the query before
// returning, on success and failure alike. Calls keep no state between each other and are safe for concurrent
// use when the store supports concurrent reads.
//
//	hp, err := ecsquery.GetSingleton[Health](state, ecsquery.Shared(Team{Label: "red"}))
//	if errors.Is(err, ecsquery.ErrNotSingleton) {
//		// zero or several entities matched
//	}
package ecsquery

import (
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/statsd"
	"github.com/argus-labs/ecsquery/types"
)

// Result shapes, used as metric tags.
const (
	shapeSingletonValue  = "singleton_value"
	shapeSingletonEntity = "singleton_entity"
	shapeCount           = "count"
	shapeEntityArray     = "entity_array"
	shapeEntities        = "entities"
	shapeComponentArray  = "component_data_array"
	shapeGet             = "get"
)

// run builds the query for spec, hands it to project and releases it. A release failure after a successful
// projection is returned as the call's error together with the projected result, so callers can free it.
// Every call is traced as one span named after its result shape.
func run[R any](store query.Store, shape string, spec query.Spec, project func(*query.Query) (R, error)) (
	result R, err error,
) {
	span := tracer.StartSpan("ecsquery.query", tracer.ResourceName(shape), tracer.Measured())
	defer func() {
		span.Finish(tracer.WithError(err))
	}()
	defer statsd.EmitQueryStat(time.Now(), shape)

	q, err := query.Build(store, spec)
	if err != nil {
		return result, err
	}
	defer func() {
		if closeErr := q.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	result, err = project(q)
	if eris.Is(err, types.ErrNotSingleton) {
		statsd.EmitNotSingleton(shape)
	}
	return result, err
}

// as converts a stored component value to the projection type.
func as[T types.Component](v types.Component) (T, error) {
	concrete, ok := v.(T)
	if !ok {
		var zero T
		return zero, eris.Wrapf(types.ErrStoreFailure, "stored value of %q has type %T", zero.Name(), v)
	}
	return concrete, nil
}

// GetSingleton returns the value of component T on the only entity matching the params. T is the projection
// type and is required implicitly. It fails with ErrNotSingleton when zero or several entities match.
func GetSingleton[T types.Component](store query.Store, params ...Param) (T, error) {
	spec := withProjection[T](buildSpec(params))
	value, err := run(store, shapeSingletonValue, spec, func(q *query.Query) (T, error) {
		v, err := q.SingletonValue()
		if err != nil {
			var zero T
			return zero, err
		}
		return as[T](v)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// GetSingletonEntity returns the only entity matching the params. It fails with ErrNotSingleton when zero or
// several entities match.
func GetSingletonEntity(store query.Store, params ...Param) (types.EntityID, error) {
	id, err := run(store, shapeSingletonEntity, buildSpec(params), (*query.Query).SingletonEntity)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// EntityCount returns the number of entities matching the params.
func EntityCount(store query.Store, params ...Param) (int, error) {
	n, err := run(store, shapeCount, buildSpec(params), (*query.Query).Count)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// EntityArray returns the entities matching the params in a buffer the caller must release.
func EntityArray(store query.Store, params ...Param) (*Buffer[types.EntityID], error) {
	buf, err := run(store, shapeEntityArray, buildSpec(params), entityBuffer)
	return settle(buf, err)
}

// Entities returns a copy of the entities matching the params.
func Entities(store query.Store, params ...Param) ([]types.EntityID, error) {
	buf, err := run(store, shapeEntities, buildSpec(params), entityBuffer)
	buf, err = settle(buf, err)
	if err != nil {
		return nil, err
	}
	return buf.clone(), nil
}

// ComponentDataArray returns the values of component T on every entity matching the params, in a buffer the
// caller must release. The values line up with the entities EntityArray returns for the same params, as long as
// the store isn't modified in between.
func ComponentDataArray[T types.Component](store query.Store, params ...Param) (*Buffer[T], error) {
	spec := withProjection[T](buildSpec(params))
	buf, err := run(store, shapeComponentArray, spec, valueBuffer[T])
	return settle(buf, err)
}

// Get returns a copy of the values of component T on every entity matching the params.
func Get[T types.Component](store query.Store, params ...Param) ([]T, error) {
	spec := withProjection[T](buildSpec(params))
	buf, err := run(store, shapeGet, spec, valueBuffer[T])
	buf, err = settle(buf, err)
	if err != nil {
		return nil, err
	}
	return buf.clone(), nil
}

// settle releases a buffer that comes back together with an error, which happens when releasing the query
// failed after the projection succeeded.
func settle[T any](buf *Buffer[T], err error) (*Buffer[T], error) {
	if err != nil {
		if buf != nil {
			buf.Release()
		}
		return nil, err
	}
	return buf, nil
}

// entityBuffer materializes the matching entities. The buffer is released on error, so a nil buffer is returned
// with any error.
func entityBuffer(q *query.Query) (*Buffer[types.EntityID], error) {
	buf := newBuffer[types.EntityID]()
	items, err := q.AppendEntities(buf.items)
	buf.items = items
	if err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

// valueBuffer materializes the projection type's values as T.
func valueBuffer[T types.Component](q *query.Query) (*Buffer[T], error) {
	raw := newBuffer[types.Component]()
	defer raw.Release()

	items, err := q.AppendValues(raw.items)
	raw.items = items
	if err != nil {
		return nil, err
	}

	buf := newBuffer[T]()
	for _, v := range raw.items {
		value, err := as[T](v)
		if err != nil {
			buf.Release()
			return nil, err
		}
		buf.items = append(buf.items, value)
	}
	return buf, nil
}
