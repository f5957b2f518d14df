// Package gamestate is an in-memory archetype entity store. It implements query.Store, so the query facade can
// run against it.
package gamestate

import (
	"sync"

	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	ecslog "github.com/argus-labs/ecsquery/log"
	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/storage/redis"
	"github.com/argus-labs/ecsquery/types"
)

var _ query.Store = &State{}

// State holds entities grouped by archetype. Reads from any number of goroutines may run concurrently, writes
// are exclusive.
type State struct {
	mu         sync.RWMutex
	components componentManager
	entities   entityManager
	archetypes []*archetype // Index is the archetype ID

	queries queryTable

	schemas *redis.SchemaStorage
	logger  zerolog.Logger
}

func New(opts ...Option) *State {
	s := &State{
		components: newComponentManager(),
		entities:   newEntityManager(),
		archetypes: make([]*archetype, 0),
		queries:    newQueryTable(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// findOrCreateArchetype finds the archetype that matches the component types exactly, or creates it.
func (s *State) findOrCreateArchetype(components bitmap.Bitmap) *archetype {
	for _, arch := range s.archetypes {
		if arch.exact(components) {
			return arch
		}
	}

	arch := s.components.createArchetype(len(s.archetypes), components)
	s.archetypes = append(s.archetypes, arch)
	return arch
}

// Create creates an entity carrying the given components. At least one component is required.
func (s *State) Create(components ...types.Component) (types.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arch, err := s.archetypeFor(components)
	if err != nil {
		return 0, err
	}
	return s.create(arch, components)
}

// CreateMany creates n entities carrying the same components.
func (s *State) CreateMany(n int, components ...types.Component) ([]types.EntityID, error) {
	if n <= 0 {
		return nil, eris.New("number of entities must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	arch, err := s.archetypeFor(components)
	if err != nil {
		return nil, err
	}
	ids := make([]types.EntityID, 0, n)
	for range n {
		id, err := s.create(arch, components)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// archetypeFor validates a component list for a new entity and returns its archetype.
func (s *State) archetypeFor(components []types.Component) (*archetype, error) {
	if len(components) == 0 {
		return nil, eris.New("entity must have at least one component")
	}
	bm, err := s.components.toComponentBitmap(components)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create component bitmap")
	}
	arch := s.findOrCreateArchetype(bm)
	for _, c := range components {
		cid, _ := s.components.getID(c.Name())
		if err := arch.column(cid).validate(c); err != nil {
			return nil, err
		}
	}
	return arch, nil
}

func (s *State) create(arch *archetype, components []types.Component) (types.EntityID, error) {
	id, row, err := s.entities.new(arch)
	if err != nil {
		return 0, eris.Wrap(err, "failed to create entity")
	}
	for _, c := range components {
		cid, _ := s.components.getID(c.Name())
		arch.column(cid).setAbstract(row, c)
	}
	s.logEntity("entity created", id, arch)
	return id, nil
}

// Destroy removes an entity and all of its components. Its ID is reused by later creates.
func (s *State) Destroy(id types.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	arch, err := s.entities.getArchetype(id)
	if err != nil {
		return err
	}
	if err := s.entities.remove(id); err != nil {
		return err
	}
	s.logEntity("entity destroyed", id, arch)
	return nil
}

// logEntity writes a debug event with the component types of arch.
func (s *State) logEntity(msg string, id types.EntityID, arch *archetype) {
	if !ecslog.Enabled(&s.logger, zerolog.DebugLevel) {
		return
	}
	components := make([]types.ComponentMetadata, 0, len(arch.ids))
	for _, cid := range arch.ids {
		if meta, ok := s.components.get(cid); ok {
			components = append(components, meta)
		}
	}
	ecslog.Entity(&s.logger, zerolog.DebugLevel, msg, id, components)
}

func (s *State) Alive(id types.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities.isAlive(id)
}

// Len returns the number of live entities.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entities.count()
}

// Set updates component T of an entity, adding it and moving the entity to a new archetype if the entity
// doesn't carry T yet.
func Set[T types.Component](s *State, id types.EntityID, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cid, err := s.components.getID(value.Name())
	if err != nil {
		return err
	}
	arch, err := s.entities.getArchetype(id)
	if err != nil {
		return err
	}

	if col := arch.column(cid); col != nil {
		if err := col.validate(value); err != nil {
			return err
		}
		row, _ := arch.rows.get(id)
		col.setAbstract(row, value)
		return nil
	}

	components := arch.components.Clone(nil)
	components.Set(uint32(cid))
	newArch := s.findOrCreateArchetype(components)
	col := newArch.column(cid)
	if err := col.validate(value); err != nil {
		return err
	}
	row, err := s.entities.move(id, newArch)
	if err != nil {
		return err
	}
	col.setAbstract(row, value)
	return nil
}

// Get returns component T of an entity.
func Get[T types.Component](s *State, id types.EntityID) (T, error) {
	var zero T

	s.mu.RLock()
	defer s.mu.RUnlock()

	cid, err := s.components.getID(zero.Name())
	if err != nil {
		return zero, err
	}
	arch, err := s.entities.getArchetype(id)
	if err != nil {
		return zero, err
	}
	col := arch.column(cid)
	if col == nil {
		return zero, eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %d", zero.Name(), id)
	}
	row, _ := arch.rows.get(id)
	value, ok := col.getAbstract(row).(T)
	if !ok {
		return zero, eris.Errorf("component %q on entity %d has unexpected type", zero.Name(), id)
	}
	return value, nil
}

// Remove removes component T from an entity, moving it to a new archetype. An entity must keep at least one
// component, use Destroy to remove the entity.
func Remove[T types.Component](s *State, id types.EntityID) error {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	cid, err := s.components.getID(zero.Name())
	if err != nil {
		return err
	}
	arch, err := s.entities.getArchetype(id)
	if err != nil {
		return err
	}
	if arch.column(cid) == nil {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %d", zero.Name(), id)
	}
	if arch.compCount == 1 {
		return eris.Errorf("cannot remove the last component of entity %d", id)
	}

	components := arch.components.Clone(nil)
	components.Remove(uint32(cid))
	_, err = s.entities.move(id, s.findOrCreateArchetype(components))
	return err
}

// Component returns the metadata of a registered component type.
func (s *State) Component(name string) (types.ComponentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cid, err := s.components.getID(name)
	if err != nil {
		return nil, err
	}
	meta, _ := s.components.get(cid)
	return meta, nil
}

// RegisteredComponents returns the metadata of every registered component type in id order.
func (s *State) RegisteredComponents() []types.ComponentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ComponentMetadata, len(s.components.metadata))
	copy(out, s.components.metadata)
	return out
}

// SharedValues returns how many distinct values of a shared component type are carried by live entities.
func (s *State) SharedValues(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cid, err := s.components.getID(name)
	if err != nil {
		return 0, err
	}
	table := s.components.shared[cid]
	if table == nil {
		return 0, eris.Errorf("component %q is not a shared component", name)
	}
	return table.len(), nil
}

// LogComponents logs every registered component type.
func (s *State) LogComponents(level zerolog.Level) {
	ecslog.Components(&s.logger, s, level)
}
