package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

// Table is the object arena. Ids are indices, assigned once and never reused
// until Clear.
type Table struct {
	objects []*Object
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) add(o *Object) *Object {
	o.table = t
	o.id = ID(len(t.objects))
	t.objects = append(t.objects, o)
	return o
}

func (t *Table) AddBox(mass float64, color geom.Color, quad int) *Object {
	return t.add(newObject(KindBox, mass, color, quad))
}

func (t *Table) AddTriangle(mass float64, color geom.Color, triangle int) *Object {
	return t.add(newObject(KindTriangle, mass, color, triangle))
}

func (t *Table) Get(id ID) *Object {
	if int(id) >= len(t.objects) {
		return nil
	}
	return t.objects[id]
}

func (t *Table) Len() int {
	return len(t.objects)
}

// At returns the object at index i, which is also its id.
func (t *Table) At(i int) *Object {
	return t.objects[i]
}

func (t *Table) All() []*Object {
	return t.objects
}

func (t *Table) Clear() {
	for _, o := range t.objects {
		o.table = nil
	}
	t.objects = t.objects[:0]
}

// SnapshotLastKnown records the rollback point of every object.
func (t *Table) SnapshotLastKnown() {
	for _, o := range t.objects {
		o.SnapshotLastKnown()
	}
}

func (t *Table) ReloadLastKnownPositions() {
	for _, o := range t.objects {
		o.ReloadLastKnownPosition()
	}
}

// SetAllOwners assigns every object to owner.
func (t *Table) SetAllOwners(owner int) {
	for _, o := range t.objects {
		o.owner = owner
	}
}

func (t *Table) Place(id ID, pos, vel mgl64.Vec2) bool {
	o := t.Get(id)
	if o == nil {
		return false
	}
	o.SetState(State{Position: pos, Velocity: vel})
	return true
}
