package query

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	ecslog "github.com/argus-labs/ecsquery/log"
	"github.com/argus-labs/ecsquery/types"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger sets the logger for query lifecycle events. Nothing is logged until it is called.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Query owns one live store query for the span of a single call. It must be closed on every exit path, the usual
// way being a deferred Close right after a successful Build.
type Query struct {
	store      Store
	handle     types.QueryHandle
	components []types.ComponentMetadata
	released   bool
}

// Build validates spec, resolves its component types against store, creates the store query and applies the
// shared filters and the where clause. If anything fails after the store query is created, it is released before
// Build returns.
func Build(store Store, spec Spec) (*Query, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	components := make([]types.ComponentMetadata, 0, len(spec.Required))
	ids := make([]types.ComponentID, 0, len(spec.Required))
	for _, c := range spec.Required {
		meta, err := store.Component(c.Name())
		if err != nil {
			return nil, classify(err)
		}
		components = append(components, meta)
		ids = append(ids, meta.ID())
	}

	shared, err := bindFilters(components, spec.Filters)
	if err != nil {
		return nil, err
	}

	handle, err := store.CreateQuery(ids)
	if err != nil {
		return nil, classify(err)
	}

	q := &Query{
		store:      store,
		handle:     handle,
		components: components,
	}
	ecslog.Query(logger.Load(), zerolog.TraceLevel, "query created", handle, components)

	if err := q.narrow(shared, spec.Where); err != nil {
		if closeErr := q.Close(); closeErr != nil {
			logger.Load().Warn().
				Str("query_id", handle.String()).
				Msg("failed to release query: " + eris.ToString(closeErr, true))
		}
		return nil, err
	}
	return q, nil
}

// bindFilters turns the constrained filters of a spec into store filter values. Filters may only name shared
// component types.
func bindFilters(components []types.ComponentMetadata, filters []Filter) ([]types.SharedValue, error) {
	shared := make([]types.SharedValue, 0, len(filters))
	for _, f := range filters {
		meta := findComponent(components, f.Component.Name())
		if meta == nil {
			return nil, eris.Wrapf(types.ErrInvalidSpec, "filter on %q which is not a required component",
				f.Component.Name())
		}
		if !meta.IsShared() {
			return nil, eris.Wrapf(types.ErrInvalidSpec, "component %q is not a shared component", meta.Name())
		}
		if !f.Constrained() {
			continue
		}
		shared = append(shared, types.SharedValue{ID: meta.ID(), Value: f.Value})
	}
	return shared, nil
}

func findComponent(components []types.ComponentMetadata, name string) types.ComponentMetadata {
	for _, c := range components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (q *Query) narrow(shared []types.SharedValue, where string) error {
	if len(shared) > 0 {
		if err := q.store.ApplySharedFilter(q.handle, shared); err != nil {
			return classify(err)
		}
	}
	if where != "" {
		if err := q.store.ApplyWhere(q.handle, where); err != nil {
			return classify(err)
		}
	}
	return nil
}

// Close releases the store query. Calling Close more than once is a no-op.
func (q *Query) Close() error {
	if q.released {
		return nil
	}
	q.released = true
	if err := q.store.ReleaseQuery(q.handle); err != nil {
		return classify(err)
	}
	ecslog.Query(logger.Load(), zerolog.TraceLevel, "query released", q.handle, q.components)
	return nil
}

// Handle returns the store handle owned by this query.
func (q *Query) Handle() types.QueryHandle {
	return q.handle
}

// Projection returns the metadata of the projection type.
func (q *Query) Projection() types.ComponentMetadata {
	return q.components[0]
}

// Components returns the resolved required component types in spec order.
func (q *Query) Components() []types.ComponentMetadata {
	return q.components
}
