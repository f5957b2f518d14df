package query

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/types"
)

var errReleased = eris.New("query has already been released")

// SingletonValue returns the projection type's value of the only matching entity. It fails with
// types.ErrNotSingleton when zero or several entities match.
func (q *Query) SingletonValue() (types.Component, error) {
	if q.released {
		return nil, classify(errReleased)
	}
	v, err := q.store.ReadSingletonValue(q.handle, q.Projection().ID())
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// SingletonEntity returns the only matching entity. It fails with types.ErrNotSingleton when zero or several
// entities match.
func (q *Query) SingletonEntity() (types.EntityID, error) {
	if q.released {
		return 0, classify(errReleased)
	}
	id, err := q.store.ReadSingletonEntity(q.handle)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// Count returns the number of matching entities. Zero is a valid result.
func (q *Query) Count() (int, error) {
	if q.released {
		return 0, classify(errReleased)
	}
	n, err := q.store.CountMatches(q.handle)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// AppendEntities appends every matching entity to dst in storage order.
func (q *Query) AppendEntities(dst []types.EntityID) ([]types.EntityID, error) {
	if q.released {
		return dst, classify(errReleased)
	}
	out, err := q.store.MaterializeEntities(q.handle, dst)
	if err != nil {
		return dst, classify(err)
	}
	return out, nil
}

// AppendValues appends the projection type's value of every matching entity to dst, in the same order
// AppendEntities produces.
func (q *Query) AppendValues(dst []types.Component) ([]types.Component, error) {
	if q.released {
		return dst, classify(errReleased)
	}
	out, err := q.store.MaterializeValues(q.handle, q.Projection().ID(), dst)
	if err != nil {
		return dst, classify(err)
	}
	return out, nil
}
