package gamestate

import (
	"github.com/kelindar/bitmap"

	"github.com/argus-labs/ecsquery/internal/assert"
	"github.com/argus-labs/ecsquery/types"
)

// archetypeID is the index of an archetype in the state's archetype list.
type archetypeID = int

// archetype represents a collection of entities with the same component types. Columns are ordered by ascending
// component id, the same order the components bitmap ranges in.
type archetype struct {
	id         archetypeID
	components bitmap.Bitmap // Bitmap of components contained in this archetype
	rows       sparseSet
	entities   []types.EntityID    // List of entities of this archetype
	ids        []types.ComponentID // Component id of each column
	columns    []abstractColumn    // List of columns containing component data
	compCount  int                 // Number of component types in the archetype
}

func newArchetype(aid archetypeID, components bitmap.Bitmap, ids []types.ComponentID, columns []abstractColumn) *archetype {
	assert.That(components.Count() == len(columns), "mismatched number of columns and components")
	assert.That(len(ids) == len(columns), "mismatched number of columns and component ids")
	return &archetype{
		id:         aid,
		components: components,
		rows:       newSparseSet(),
		entities:   make([]types.EntityID, 0),
		ids:        ids,
		columns:    columns,
		compCount:  len(columns),
	}
}

// exact returns true if the given components matches the archetype's exactly.
func (a *archetype) exact(components bitmap.Bitmap) bool {
	if a.compCount != components.Count() {
		return false
	}
	return a.contains(components)
}

// contains returns true if the archetype contains all of the components in the given components.
func (a *archetype) contains(components bitmap.Bitmap) bool {
	intersect := components.Clone(nil)
	intersect.And(a.components)
	return intersect.Count() == components.Count()
}

// column returns the column storing the given component type, or nil if the archetype doesn't have it.
func (a *archetype) column(cid types.ComponentID) abstractColumn {
	for i, id := range a.ids {
		if id == cid {
			return a.columns[i]
		}
	}
	return nil
}

// newEntity adds the entity to the archetype and extends every column with an empty row.
func (a *archetype) newEntity(eid types.EntityID) int {
	a.entities = append(a.entities, eid)

	for _, column := range a.columns {
		column.extend()
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	row := len(a.entities) - 1
	a.rows.set(eid, row)
	return row
}

// removeEntity swaps the last entity into the removed row. Expects the caller to check that the entity belongs
// to this archetype.
func (a *archetype) removeEntity(eid types.EntityID) {
	row, exists := a.rows.get(eid)
	assert.That(exists, "entity is not in archetype")

	lastIndex := len(a.entities) - 1
	a.entities[row] = a.entities[lastIndex]
	a.entities = a.entities[:lastIndex]

	for _, column := range a.columns {
		column.remove(row)
		assert.That(column.len() == len(a.entities), "column components length doesn't match entities")
	}

	ok := a.rows.remove(eid)
	assert.That(ok, "entity isn't removed from sparse set")

	// If the entity is the last item in the slice, nothing is swapped.
	if row == lastIndex {
		return
	}
	movedID := a.entities[row]
	a.rows.set(movedID, row)
}

// moveEntity creates the entity in the destination archetype, copies the component data both archetypes have
// in common, and removes the entity from this archetype. Returns the row in the destination.
func (a *archetype) moveEntity(destination *archetype, eid types.EntityID) int {
	row, exists := a.rows.get(eid)
	assert.That(exists, "entity is not in archetype")

	newRow := destination.newEntity(eid)
	for i, dst := range destination.columns {
		if src := a.column(destination.ids[i]); src != nil {
			dst.setAbstract(newRow, src.getAbstract(row))
		}
	}

	a.removeEntity(eid)
	return newRow
}

// toMap converts the entity in a row to a map of its components keyed by component name. A "_id" key holds the
// entity id.
func (a *archetype) toMap(row int) map[string]any {
	data := make(map[string]any, a.compCount+1)

	// expr can't compare EntityID with integer literals, so the id is stored as uint32.
	data["_id"] = uint32(a.entities[row])

	for _, col := range a.columns {
		data[col.name()] = col.getAbstract(row)
	}
	return data
}
