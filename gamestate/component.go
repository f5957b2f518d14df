package gamestate

import (
	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/component"
	"github.com/argus-labs/ecsquery/internal/assert"
	"github.com/argus-labs/ecsquery/storage/redis"
	"github.com/argus-labs/ecsquery/types"
)

// componentManager manages component type registration and lookup.
type componentManager struct {
	nextID    types.ComponentID            // The next available component ID
	catalog   map[string]types.ComponentID // Component name -> component ID
	metadata  []types.ComponentMetadata    // Component ID -> metadata
	factories []columnFactory              // Component ID -> column factory
	shared    []*sharedTable               // Component ID -> intern table, nil for plain components
}

func newComponentManager() componentManager {
	return componentManager{
		nextID:    0,
		catalog:   make(map[string]types.ComponentID),
		metadata:  make([]types.ComponentMetadata, 0),
		factories: make([]columnFactory, 0),
		shared:    make([]*sharedTable, 0),
	}
}

// register registers a new component type and returns its ID. If the component is already registered, no-op.
func (cm *componentManager) register(
	meta types.ComponentMetadata, factory func(*sharedTable) columnFactory,
) (types.ComponentID, error) {
	name := meta.Name()
	if name == "" {
		return 0, eris.New("component name cannot be empty")
	}

	if cid, exists := cm.catalog[name]; exists {
		return cid, nil
	}

	if err := meta.SetID(cm.nextID); err != nil {
		return 0, eris.Wrap(err, "failed to set component id")
	}

	var table *sharedTable
	if meta.IsShared() {
		table = newSharedTable(meta)
	}

	cm.catalog[name] = cm.nextID
	cm.metadata = append(cm.metadata, meta)
	cm.factories = append(cm.factories, factory(table))
	cm.shared = append(cm.shared, table)
	cm.nextID++
	assert.That(int(cm.nextID) == len(cm.factories), "component id doesn't match number of components")

	return cm.nextID - 1, nil
}

// getID returns a component's ID given a name.
func (cm *componentManager) getID(name string) (types.ComponentID, error) {
	id, exists := cm.catalog[name]
	if !exists {
		return 0, eris.Wrapf(types.ErrUnknownType, "component %q", name)
	}
	return id, nil
}

func (cm *componentManager) get(cid types.ComponentID) (types.ComponentMetadata, bool) {
	if int(cid) >= len(cm.metadata) {
		return nil, false
	}
	return cm.metadata[cid], true
}

// toComponentBitmap returns the bitmap of the given components. Every component must be registered and appear
// at most once.
func (cm *componentManager) toComponentBitmap(components []types.Component) (bitmap.Bitmap, error) {
	bm := bitmap.Bitmap{}
	for _, c := range components {
		if c == nil {
			return nil, eris.New("component cannot be nil")
		}
		cid, err := cm.getID(c.Name())
		if err != nil {
			return nil, err
		}
		if bm.Contains(uint32(cid)) {
			return nil, eris.Errorf("duplicate component %q", c.Name())
		}
		bm.Set(uint32(cid))
	}
	return bm, nil
}

// createArchetype creates an archetype with one column per component in the bitmap.
func (cm *componentManager) createArchetype(aid archetypeID, components bitmap.Bitmap) *archetype {
	ids := make([]types.ComponentID, 0, components.Count())
	columns := make([]abstractColumn, 0, components.Count())
	components.Range(func(cid uint32) {
		ids = append(ids, types.ComponentID(cid))
		columns = append(columns, cm.factories[cid]())
	})
	return newArchetype(aid, components, ids, columns)
}

// RegisterComponent registers component type T with the state. Registering the same type again is a no-op. When
// the state has schema storage, the schema of T is stored on first registration and must match on later runs.
func RegisterComponent[T types.Component](s *State) error {
	var zero T
	name := zero.Name()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.components.getID(name); err == nil {
		return nil
	}

	meta := component.New[T]()
	if s.schemas != nil {
		if err := checkSchema(s.schemas, meta); err != nil {
			return err
		}
	}

	factory := func(table *sharedTable) columnFactory {
		if table != nil {
			return newSharedColumnFactory[T](table)
		}
		return newColumnFactory[T]()
	}
	cid, err := s.components.register(meta, factory)
	if err != nil {
		return eris.Wrapf(err, "failed to register component %q", name)
	}

	s.logger.Debug().
		Str("component_name", name).
		Uint32("component_id", uint32(cid)).
		Bool("shared", meta.IsShared()).
		Msg("component registered")
	return nil
}

// checkSchema stores the schema of a component seen for the first time, and validates it against the stored one
// otherwise.
func checkSchema(schemas *redis.SchemaStorage, meta types.ComponentMetadata) error {
	stored, err := schemas.GetSchema(meta.Name())
	if eris.Is(err, redis.ErrNoSchemaFound) {
		schema, err := meta.Schema()
		if err != nil {
			return err
		}
		return schemas.SetSchema(meta.Name(), schema)
	} else if err != nil {
		return eris.Wrapf(err, "failed to load schema of component %q", meta.Name())
	}
	return component.ValidateSchema(meta, stored)
}
