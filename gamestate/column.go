package gamestate

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/internal/assert"
	"github.com/argus-labs/ecsquery/types"
)

// columnFactory is a function that creates a new abstractColumn instance.
type columnFactory func() abstractColumn

// abstractColumn is an internal interface for generic column operations.
type abstractColumn interface {
	len() int
	name() string
	extend()

	// validate checks that the column can store the given value.
	validate(component types.Component) error
	setAbstract(row int, component types.Component)
	getAbstract(row int) types.Component
	remove(row int)
}

var _ abstractColumn = &column[types.Component]{}

// column stores the component data of entities in an archetype. The length of the components slice
// must match the length of the entities slice in the archetype.
type column[T types.Component] struct {
	compName   string // The name of the component stored in this column
	components []T    // Array containing the component data
}

func newColumn[T types.Component]() column[T] {
	var zero T
	const initialCapacity = 16
	return column[T]{
		compName:   zero.Name(),
		components: make([]T, 0, initialCapacity),
	}
}

// newColumnFactory returns a function that constructs a new column of type T.
func newColumnFactory[T types.Component]() columnFactory {
	return func() abstractColumn {
		col := newColumn[T]()
		return &col
	}
}

func (c *column[T]) len() int {
	return len(c.components)
}

func (c *column[T]) name() string {
	return c.compName
}

// extend adds a new row to the components slice and initializes it with the zero value.
func (c *column[T]) extend() {
	var zero T
	c.components = append(c.components, zero)
}

func (c *column[T]) validate(component types.Component) error {
	if _, ok := component.(T); !ok {
		return eris.Errorf("cannot store %T in column %q", component, c.compName)
	}
	return nil
}

// set sets the component in a given row. Prefer this over setAbstract whenever the concrete type is known, it
// avoids boxing the component.
func (c *column[T]) set(row int, component T) {
	assert.That(row < len(c.components), "column isn't extended when entity is created")
	c.components[row] = component
}

func (c *column[T]) setAbstract(row int, component types.Component) {
	concrete, ok := component.(T)
	assert.That(ok, "tried to set the wrong component type")
	c.set(row, concrete)
}

// get gets the value from a given row. Expects the caller to make sure the row is inside the column.
func (c *column[T]) get(row int) T {
	assert.That(row < len(c.components), "component doesn't exist")
	return c.components[row]
}

func (c *column[T]) getAbstract(row int) types.Component {
	return c.get(row)
}

// remove swaps the last value in the slice into the removed row.
func (c *column[T]) remove(row int) {
	assert.That(row < len(c.components), "tried to remove component that doesn't exist")

	lastIndex := len(c.components) - 1
	c.components[row] = c.components[lastIndex]
	c.components = c.components[:lastIndex]
}
