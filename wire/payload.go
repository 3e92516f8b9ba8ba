package wire

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gekko3d/splitworld/geom"
)

const (
	countSize         = 4
	updatesHeaderSize = countSize + 4*4
	updateRecordSize  = 4 + 4*8
	initRecordSize    = 4 + 4*8 + 4 + 8
	migrationSize     = 4 + 4

	// maxRecords rejects absurd counts before anything is allocated for them.
	maxRecords = 1 << 20
)

// ObjectRecord is one object of the initialization stream.
type ObjectRecord struct {
	Type     uint32
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Color    geom.Color
	Mass     float64
}

type UpdateRecord struct {
	ID       uint32
	Position mgl64.Vec2
	Velocity mgl64.Vec2
}

// UpdateFrame is the authoritative state one peer publishes per tick along
// with the bounds of its viewport.
type UpdateFrame struct {
	Bounds  geom.AABB
	Records []UpdateRecord
}

type MigrationType uint32

const (
	MigrationRequest MigrationType = iota
	MigrationAck
	MigrationDeny
)

func (t MigrationType) String() string {
	switch t {
	case MigrationRequest:
		return "request"
	case MigrationAck:
		return "ack"
	case MigrationDeny:
		return "deny"
	}
	return fmt.Sprintf("migration(%d)", uint32(t))
}

type Migration struct {
	Type MigrationType
	ID   uint32
}

func putVec(m *Message, v mgl64.Vec2) {
	m.PutF64(v.X())
	m.PutF64(v.Y())
}

func vec(m *Message) mgl64.Vec2 {
	x := m.F64()
	return mgl64.Vec2{x, m.F64()}
}

// EncodeInit writes the full object table. The record count goes first.
func EncodeInit(records []ObjectRecord) [][]byte {
	b := NewBatcher(KindInit)
	b.Reserve(countSize).PutU32(uint32(len(records)))

	for _, r := range records {
		m := b.Reserve(initRecordSize)
		m.PutU32(r.Type)
		putVec(m, r.Position)
		putVec(m, r.Velocity)
		m.PutU32(uint32(r.Color))
		m.PutF64(r.Mass)
	}
	return b.Messages()
}

func EncodeUpdates(f UpdateFrame) [][]byte {
	b := NewBatcher(KindObjectUpdates)
	m := b.Reserve(updatesHeaderSize)
	m.PutU32(uint32(len(f.Records)))
	m.PutF32(float32(f.Bounds.Min.X()))
	m.PutF32(float32(f.Bounds.Min.Y()))
	m.PutF32(float32(f.Bounds.Max.X()))
	m.PutF32(float32(f.Bounds.Max.Y()))

	for _, r := range f.Records {
		m := b.Reserve(updateRecordSize)
		m.PutU32(r.ID)
		putVec(m, r.Position)
		putVec(m, r.Velocity)
	}
	return b.Messages()
}

// EncodeMigrations returns nil for an empty batch. Each message stands
// alone.
func EncodeMigrations(recs []Migration) [][]byte {
	if len(recs) == 0 {
		return nil
	}
	b := NewBatcher(KindObjectMigration)
	for _, r := range recs {
		m := b.Reserve(migrationSize)
		m.PutU32(uint32(r.Type))
		m.PutU32(r.ID)
	}
	return b.Messages()
}

func DecodeMigrations(m *Message) ([]Migration, error) {
	if m.Remaining()%migrationSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes of migration records", ErrMalformed, m.Remaining())
	}
	out := make([]Migration, 0, m.Remaining()/migrationSize)
	for m.Remaining() > 0 {
		r := Migration{Type: MigrationType(m.U32()), ID: m.U32()}
		if r.Type > MigrationDeny {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, r.Type)
		}
		out = append(out, r)
	}
	return out, m.Err()
}

// assembler collects records of a stream that spans several messages. The
// first message carries a header with the record count.
type assembler[H any, R any] struct {
	header func(m *Message) (int, H)
	record func(m *Message) R

	open    bool
	want    int
	head    H
	records []R
}

// add consumes one message. It returns true once the last record arrived;
// the result is then available until the next add.
func (a *assembler[H, R]) add(m *Message) (bool, error) {
	if !a.open {
		var zero H
		a.head = zero
		a.records = nil

		n, h := a.header(m)
		if err := m.Err(); err != nil {
			return false, err
		}
		if n < 0 || n > maxRecords {
			return false, fmt.Errorf("%w: record count %d", ErrMalformed, n)
		}
		a.open, a.want, a.head = true, n, h
		a.records = make([]R, 0, min(n, 1024))
	}

	for m.Remaining() > 0 {
		if len(a.records) == a.want {
			a.open = false
			return false, fmt.Errorf("%w: %d bytes past the last record", ErrMalformed, m.Remaining())
		}
		r := a.record(m)
		if err := m.Err(); err != nil {
			a.open = false
			return false, err
		}
		a.records = append(a.records, r)
	}

	if len(a.records) == a.want {
		a.open = false
		return true, nil
	}
	return false, nil
}

func (a *assembler[H, R]) reset() {
	a.open = false
	a.records = nil
}

// InitReader rebuilds the object table sent by EncodeInit.
type InitReader struct {
	asm assembler[struct{}, ObjectRecord]
}

func NewInitReader() *InitReader {
	return &InitReader{asm: assembler[struct{}, ObjectRecord]{
		header: func(m *Message) (int, struct{}) {
			return int(m.U32()), struct{}{}
		},
		record: func(m *Message) ObjectRecord {
			return ObjectRecord{
				Type:     m.U32(),
				Position: vec(m),
				Velocity: vec(m),
				Color:    geom.Color(m.U32()),
				Mass:     m.F64(),
			}
		},
	}}
}

// Add returns the complete table once its last message has been added.
func (r *InitReader) Add(m *Message) ([]ObjectRecord, error) {
	done, err := r.asm.add(m)
	if err != nil || !done {
		return nil, err
	}
	return r.asm.records, nil
}

func (r *InitReader) Reset() {
	r.asm.reset()
}

// UpdatesReader rebuilds frames sent by EncodeUpdates.
type UpdatesReader struct {
	asm assembler[geom.AABB, UpdateRecord]
}

func NewUpdatesReader() *UpdatesReader {
	return &UpdatesReader{asm: assembler[geom.AABB, UpdateRecord]{
		header: func(m *Message) (int, geom.AABB) {
			n := int(m.U32())
			minX, minY := m.F32(), m.F32()
			maxX, maxY := m.F32(), m.F32()
			return n, geom.NewAABB(
				mgl64.Vec2{float64(minX), float64(minY)},
				mgl64.Vec2{float64(maxX), float64(maxY)},
			)
		},
		record: func(m *Message) UpdateRecord {
			return UpdateRecord{ID: m.U32(), Position: vec(m), Velocity: vec(m)}
		},
	}}
}

func (r *UpdatesReader) Add(m *Message) (*UpdateFrame, error) {
	done, err := r.asm.add(m)
	if err != nil || !done {
		return nil, err
	}
	return &UpdateFrame{Bounds: r.asm.head, Records: r.asm.records}, nil
}

func (r *UpdatesReader) Reset() {
	r.asm.reset()
}
