package gamestate

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/internal/assert"
	"github.com/argus-labs/ecsquery/types"
)

// entityManager manages entity IDs and references to their associated archetypes. It acts as an index from
// entity ID to archetype to avoid iterating through all archetypes. Callers hold the state lock.
type entityManager struct {
	nextID     types.EntityID                // The next ID to allocate if no free IDs are available
	free       []types.EntityID              // A queue of free IDs
	entityArch map[types.EntityID]*archetype // Maps entity IDs to archetypes
}

func newEntityManager() entityManager {
	return entityManager{
		nextID:     0,
		free:       make([]types.EntityID, 0),
		entityArch: make(map[types.EntityID]*archetype),
	}
}

// new allocates an entity ID and adds the entity to arch. Returns the entity's row.
func (em *entityManager) new(arch *archetype) (types.EntityID, int, error) {
	assert.That(arch != nil, "archetype must not be nil")

	var id types.EntityID
	if len(em.free) > 0 {
		// Pop from the front of the free list (FIFO).
		id = em.free[0]
		em.free = em.free[1:]
	} else {
		id = em.nextID
		if id > types.MaxEntityID {
			return 0, 0, eris.New("max number of entities exceeded")
		}
		em.nextID++
	}

	row := arch.newEntity(id)
	em.entityArch[id] = arch
	return id, row, nil
}

// remove removes the entity from its archetype and marks its ID as available for reuse.
func (em *entityManager) remove(id types.EntityID) error {
	arch, err := em.getArchetype(id)
	if err != nil {
		return err
	}

	arch.removeEntity(id)
	em.free = append(em.free, id)
	delete(em.entityArch, id)
	return nil
}

// move moves an entity to another archetype and returns its row there.
func (em *entityManager) move(id types.EntityID, newArch *archetype) (int, error) {
	currentArch, err := em.getArchetype(id)
	if err != nil {
		return 0, err
	}
	assert.That(currentArch != newArch, "entity moved into its existing archetype")

	row := currentArch.moveEntity(newArch, id)
	em.entityArch[id] = newArch
	return row, nil
}

func (em *entityManager) isAlive(id types.EntityID) bool {
	_, exists := em.entityArch[id]
	return exists
}

// getArchetype returns the archetype associated with the given entity.
func (em *entityManager) getArchetype(id types.EntityID) (*archetype, error) {
	arch, exists := em.entityArch[id]
	if !exists {
		return nil, eris.Wrapf(ErrEntityNotFound, "entity %d", id)
	}
	return arch, nil
}

func (em *entityManager) count() int {
	return len(em.entityArch)
}
