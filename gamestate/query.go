package gamestate

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/component"
	"github.com/argus-labs/ecsquery/types"
)

// sharedFilter keeps the key of a filter value instead of the interned entry. The entry is looked up on every
// evaluation, so a filter stays correct while entities come and go between evaluations.
type sharedFilter struct {
	id  types.ComponentID
	key component.Key
}

// liveQuery is the state behind one query handle.
type liveQuery struct {
	required bitmap.Bitmap
	filters  []sharedFilter
	where    []*vm.Program // All programs must hold for an entity to match
}

// queryTable holds the live queries. It has its own lock so creating and releasing queries doesn't contend
// with reads of entity state.
type queryTable struct {
	mu   sync.Mutex
	live map[types.QueryHandle]*liveQuery
}

func newQueryTable() queryTable {
	return queryTable{live: make(map[types.QueryHandle]*liveQuery)}
}

func (qt *queryTable) get(h types.QueryHandle) (*liveQuery, error) {
	qt.mu.Lock()
	defer qt.mu.Unlock()

	q, ok := qt.live[h]
	if !ok {
		return nil, eris.Wrapf(ErrQueryNotFound, "query %s", h)
	}
	return q, nil
}

// OpenQueries returns the number of query handles that were created and not released yet.
func (s *State) OpenQueries() int {
	s.queries.mu.Lock()
	defer s.queries.mu.Unlock()
	return len(s.queries.live)
}

// CreateQuery creates a query over the entities carrying every given component type.
func (s *State) CreateQuery(ids []types.ComponentID) (types.QueryHandle, error) {
	if len(ids) == 0 {
		return types.QueryHandle{}, eris.Wrap(types.ErrInvalidSpec, "query needs at least one component")
	}

	s.mu.RLock()
	required := bitmap.Bitmap{}
	for _, cid := range ids {
		if _, ok := s.components.get(cid); !ok {
			s.mu.RUnlock()
			return types.QueryHandle{}, eris.Wrapf(types.ErrUnknownType, "component id %d", cid)
		}
		required.Set(uint32(cid))
	}
	s.mu.RUnlock()

	h := types.NewQueryHandle()
	s.queries.mu.Lock()
	s.queries.live[h] = &liveQuery{required: required}
	s.queries.mu.Unlock()
	return h, nil
}

// ApplySharedFilter narrows a query to the entities whose shared components equal the given values.
func (s *State) ApplySharedFilter(h types.QueryHandle, filters []types.SharedValue) error {
	q, err := s.queries.get(h)
	if err != nil {
		return err
	}

	s.mu.RLock()
	bound := make([]sharedFilter, 0, len(filters))
	for _, f := range filters {
		meta, ok := s.components.get(f.ID)
		if !ok {
			s.mu.RUnlock()
			return eris.Wrapf(types.ErrUnknownType, "component id %d", f.ID)
		}
		if !meta.IsShared() {
			s.mu.RUnlock()
			return eris.Wrapf(types.ErrInvalidSpec, "component %q is not a shared component", meta.Name())
		}
		if !q.required.Contains(uint32(f.ID)) {
			s.mu.RUnlock()
			return eris.Wrapf(types.ErrInvalidSpec, "filter on %q which is not required by the query", meta.Name())
		}
		key, err := component.KeyOf(meta, f.Value)
		if err != nil {
			s.mu.RUnlock()
			return eris.Wrap(types.ErrInvalidSpec, err.Error())
		}
		bound = append(bound, sharedFilter{id: f.ID, key: key})
	}
	s.mu.RUnlock()

	s.queries.mu.Lock()
	q.filters = append(q.filters, bound...)
	s.queries.mu.Unlock()
	return nil
}

// ApplyWhere narrows a query with an expr boolean expression. Each component on an entity is available under
// its name, and the entity id under "_id". See https://expr-lang.org/docs/getting-started.
func (s *State) ApplyWhere(h types.QueryHandle, expression string) error {
	q, err := s.queries.get(h)
	if err != nil {
		return err
	}

	program, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return eris.Wrap(types.ErrInvalidSpec, "failed to parse where clause: "+err.Error())
	}

	s.queries.mu.Lock()
	q.where = append(q.where, program)
	s.queries.mu.Unlock()
	return nil
}

func (s *State) ReleaseQuery(h types.QueryHandle) error {
	s.queries.mu.Lock()
	defer s.queries.mu.Unlock()

	if _, ok := s.queries.live[h]; !ok {
		return eris.Wrapf(ErrQueryNotFound, "query %s", h)
	}
	delete(s.queries.live, h)
	return nil
}

// resolvedFilter is a shared filter bound to its interned entry for one evaluation.
type resolvedFilter struct {
	id    types.ComponentID
	entry *sharedEntry
}

// each calls fn with the archetype and row of every entity matching the query, in archetype creation order and
// then row order, until fn returns false. Callers hold the read lock.
func (s *State) each(q *liveQuery, fn func(arch *archetype, row int) bool) error {
	resolved := make([]resolvedFilter, 0, len(q.filters))
	for _, f := range q.filters {
		entry := s.components.shared[f.id].find(f.key)
		if entry == nil {
			// No entity carries the value.
			return nil
		}
		resolved = append(resolved, resolvedFilter{id: f.id, entry: entry})
	}

	for _, arch := range s.archetypes {
		if len(arch.entities) == 0 || !arch.contains(q.required) {
			continue
		}

		cols := make([]sharedRows, len(resolved))
		for i, f := range resolved {
			cols[i] = arch.column(f.id).(sharedRows)
		}

	rows:
		for row := range arch.entities {
			for i, f := range resolved {
				if cols[i].entry(row) != f.entry {
					continue rows
				}
			}
			ok, err := evalWhere(q.where, arch, row)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if !fn(arch, row) {
				return nil
			}
		}
	}
	return nil
}

func evalWhere(programs []*vm.Program, arch *archetype, row int) (bool, error) {
	if len(programs) == 0 {
		return true, nil
	}

	// The entity map is the environment of the program so it has access to the entity data.
	env := arch.toMap(row)
	for _, program := range programs {
		output, err := expr.Run(program, env)
		if err != nil {
			return false, eris.Wrap(err, "failed to run filter expression")
		}
		// Compilation happens without an environment, so it can't prove the result is a bool when the expression
		// reads struct fields.
		isMatch, ok := output.(bool)
		if !ok {
			return false, eris.New("invalid where clause")
		}
		if !isMatch {
			return false, nil
		}
	}
	return true, nil
}

// projected checks that a component type is required by the query, so every match carries it.
func (s *State) projected(q *liveQuery, cid types.ComponentID) error {
	if !q.required.Contains(uint32(cid)) {
		return eris.Wrapf(types.ErrInvalidSpec, "component id %d is not required by the query", cid)
	}
	return nil
}

// singleton returns the archetype and row of the only matching entity.
func (s *State) singleton(q *liveQuery) (*archetype, int, error) {
	var (
		found    *archetype
		foundRow int
		matches  int
	)
	err := s.each(q, func(arch *archetype, row int) bool {
		matches++
		found, foundRow = arch, row
		return matches < 2
	})
	if err != nil {
		return nil, 0, err
	}
	switch matches {
	case 0:
		return nil, 0, eris.Wrap(types.ErrNotSingleton, "no entity matches")
	case 1:
		return found, foundRow, nil
	default:
		return nil, 0, eris.Wrap(types.ErrNotSingleton, "more than one entity matches")
	}
}

func (s *State) ReadSingletonValue(h types.QueryHandle, cid types.ComponentID) (types.Component, error) {
	q, err := s.queries.get(h)
	if err != nil {
		return nil, err
	}
	if err := s.projected(q, cid); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	arch, row, err := s.singleton(q)
	if err != nil {
		return nil, err
	}
	return arch.column(cid).getAbstract(row), nil
}

func (s *State) ReadSingletonEntity(h types.QueryHandle) (types.EntityID, error) {
	q, err := s.queries.get(h)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	arch, row, err := s.singleton(q)
	if err != nil {
		return 0, err
	}
	return arch.entities[row], nil
}

func (s *State) CountMatches(h types.QueryHandle) (int, error) {
	q, err := s.queries.get(h)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	err = s.each(q, func(*archetype, int) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *State) MaterializeEntities(h types.QueryHandle, dst []types.EntityID) ([]types.EntityID, error) {
	q, err := s.queries.get(h)
	if err != nil {
		return dst, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := dst
	err = s.each(q, func(arch *archetype, row int) bool {
		out = append(out, arch.entities[row])
		return true
	})
	if err != nil {
		return dst, err
	}
	return out, nil
}

func (s *State) MaterializeValues(
	h types.QueryHandle, cid types.ComponentID, dst []types.Component,
) ([]types.Component, error) {
	q, err := s.queries.get(h)
	if err != nil {
		return dst, err
	}
	if err := s.projected(q, cid); err != nil {
		return dst, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := dst
	err = s.each(q, func(arch *archetype, row int) bool {
		out = append(out, arch.column(cid).getAbstract(row))
		return true
	})
	if err != nil {
		return dst, err
	}
	return out, nil
}
