package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

type ID uint32

// NoParent marks a top level object.
const NoParent ID = math.MaxUint32

// MaxContacts bounds the contacts gathered for one object per tick. Extra
// contacts are dropped.
const MaxContacts = 25

// Kind values double as the object type on the wire.
type Kind uint32

const (
	KindBox Kind = iota
	KindTriangle
	KindBlobby
	KindBlobbyPart

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindTriangle:
		return "triangle"
	case KindBlobby:
		return "blobby"
	case KindBlobbyPart:
		return "blobby-part"
	}
	return "unknown"
}

func (k Kind) Valid() bool {
	return k < kindCount
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := Kind(0); k < kindCount; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type State struct {
	Position mgl64.Vec2
	Velocity mgl64.Vec2
}

type Object struct {
	table *Table

	id   ID
	kind Kind

	state State
	// committed is the state published at the end of the last solve. Springs
	// read it for the far end so integration never races another thread.
	committed State
	lastKnown State

	mass  float64
	color geom.Color
	owner int

	parent   ID
	children []ID

	constraints []Constraint
	contacts    []geom.Contact

	// shape is the first quad or triangle index owned by this object, -1 if
	// it draws nothing.
	shape int
}

func newObject(kind Kind, mass float64, color geom.Color, shape int) *Object {
	return &Object{
		kind:     kind,
		mass:     mass,
		color:    color,
		parent:   NoParent,
		shape:    shape,
		contacts: make([]geom.Contact, 0, MaxContacts),
	}
}

func (o *Object) ID() ID {
	return o.id
}

func (o *Object) Kind() Kind {
	return o.kind
}

func (o *Object) Position() mgl64.Vec2 {
	return o.state.Position
}

func (o *Object) Velocity() mgl64.Vec2 {
	return o.state.Velocity
}

func (o *Object) State() State {
	return o.state
}

func (o *Object) Committed() State {
	return o.committed
}

// SetPosition moves the object. A blobby moves all of its parts by the same
// delta so the body keeps its shape.
func (o *Object) SetPosition(p mgl64.Vec2) {
	delta := p.Sub(o.state.Position)
	o.state.Position = p
	o.committed.Position = p

	for _, child := range o.Children() {
		child.SetPosition(child.Position().Add(delta))
	}
}

func (o *Object) SetVelocity(v mgl64.Vec2) {
	o.state.Velocity = v
	o.committed.Velocity = v

	for _, child := range o.Children() {
		child.SetVelocity(v)
	}
}

// SetState overwrites this object only, children are left alone.
func (o *Object) SetState(s State) {
	o.state = s
	o.committed = s
}

func (o *Object) Mass() float64 {
	return o.mass
}

func (o *Object) SetMass(m float64) {
	if m > 0 {
		o.mass = m
	}
}

func (o *Object) Color() geom.Color {
	return o.color
}

func (o *Object) SetColor(c geom.Color) {
	o.color = c
}

func (o *Object) Owner() int {
	return o.owner
}

// SetOwner assigns the authoritative peer, cascading to children.
func (o *Object) SetOwner(owner int) {
	o.owner = owner
	for _, child := range o.Children() {
		child.SetOwner(owner)
	}
}

func (o *Object) Parent() (ID, bool) {
	return o.parent, o.parent != NoParent
}

// Root walks up to the topmost parent.
func (o *Object) Root() *Object {
	root := o
	for {
		id, ok := root.Parent()
		if !ok || o.table == nil {
			return root
		}
		p := o.table.Get(id)
		if p == nil {
			return root
		}
		root = p
	}
}

func (o *Object) Children() []*Object {
	if len(o.children) == 0 || o.table == nil {
		return nil
	}
	out := make([]*Object, 0, len(o.children))
	for _, id := range o.children {
		if c := o.table.Get(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (o *Object) ChildIDs() []ID {
	return o.children
}

func (o *Object) CanMigrate() bool {
	return o.parent == NoParent
}

// AddContact reports false when the contact list is already full.
func (o *Object) AddContact(c geom.Contact) bool {
	if len(o.contacts) >= MaxContacts {
		return false
	}
	o.contacts = append(o.contacts, c)
	return true
}

func (o *Object) Contacts() []geom.Contact {
	return o.contacts
}

func (o *Object) ClearContacts() {
	o.contacts = o.contacts[:0]
}

func (o *Object) AddConstraint(c Constraint) {
	o.constraints = append(o.constraints, c)
}

func (o *Object) RemoveConstraint(c Constraint) {
	for i, existing := range o.constraints {
		if existing == c {
			o.constraints = append(o.constraints[:i], o.constraints[i+1:]...)
			return
		}
	}
}

func (o *Object) Constraints() []Constraint {
	return o.constraints
}

func (o *Object) ShapeIndex() int {
	return o.shape
}

// SnapshotLastKnown records the current state as the rollback point.
func (o *Object) SnapshotLastKnown() {
	o.lastKnown = o.state
}

func (o *Object) LastKnown() State {
	return o.lastKnown
}

// ReloadLastKnownPosition restores the rollback point. Calling it again has
// no further effect.
func (o *Object) ReloadLastKnownPosition() {
	o.state = o.lastKnown
	o.committed = o.lastKnown
}
