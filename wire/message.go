// Package wire implements the length prefixed binary messages exchanged by
// two peers. All multi-byte values are little endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// MaxMessageSize bounds a message including its size prefix.
	MaxMessageSize = 512
	prefixSize     = 2
	// minMessageSize is a prefix plus the kind byte.
	minMessageSize = prefixSize + 1
)

var (
	ErrMessageFull = errors.New("wire: message full")
	ErrTruncated   = errors.New("wire: message truncated")
	ErrMalformed   = errors.New("wire: malformed message")
	ErrClosed      = errors.New("wire: connection closed")
)

// Kind is the first payload byte of every message.
type Kind uint8

const (
	KindInit Kind = iota + 1
	KindObjectUpdates
	KindObjectMigration
	KindDiscovery
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindObjectUpdates:
		return "object-updates"
	case KindObjectMigration:
		return "object-migration"
	case KindDiscovery:
		return "discovery"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is a single frame being written or read. Errors are sticky: once a
// Put overflows or a Get runs past the end, every later call is a no-op and
// Err reports the first failure.
type Message struct {
	buf []byte
	off int
	err error
}

func NewMessage(kind Kind) *Message {
	m := &Message{buf: make([]byte, prefixSize, MaxMessageSize)}
	m.PutU8(uint8(kind))
	return m
}

// ParseMessage wraps one complete frame as produced by Bytes. The kind byte is
// consumed.
func ParseMessage(b []byte) (*Message, Kind, error) {
	if len(b) < minMessageSize || len(b) > MaxMessageSize {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrMalformed, len(b))
	}
	if size := int(binary.LittleEndian.Uint16(b)); size != len(b) {
		return nil, 0, fmt.Errorf("%w: prefix %d, frame %d", ErrMalformed, size, len(b))
	}
	m := &Message{buf: b, off: prefixSize}
	kind := Kind(m.U8())
	return m, kind, m.err
}

func (m *Message) Err() error {
	return m.err
}

// Len is the encoded size including the prefix.
func (m *Message) Len() int {
	return len(m.buf)
}

// Free is the number of bytes that still fit.
func (m *Message) Free() int {
	return MaxMessageSize - len(m.buf)
}

// Remaining is the number of unread bytes.
func (m *Message) Remaining() int {
	return len(m.buf) - m.off
}

// Bytes stamps the size prefix and returns the frame.
func (m *Message) Bytes() []byte {
	binary.LittleEndian.PutUint16(m.buf, uint16(len(m.buf)))
	return m.buf
}

func (m *Message) grow(n int) []byte {
	if m.err != nil {
		return nil
	}
	if len(m.buf)+n > MaxMessageSize {
		m.err = ErrMessageFull
		return nil
	}
	start := len(m.buf)
	m.buf = m.buf[:start+n]
	return m.buf[start:]
}

func (m *Message) PutU8(v uint8) {
	if b := m.grow(1); b != nil {
		b[0] = v
	}
}

func (m *Message) PutU16(v uint16) {
	if b := m.grow(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (m *Message) PutU32(v uint32) {
	if b := m.grow(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (m *Message) PutF32(v float32) {
	m.PutU32(math.Float32bits(v))
}

func (m *Message) PutF64(v float64) {
	if b := m.grow(8); b != nil {
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// PutString writes a u16 length followed by the bytes.
func (m *Message) PutString(s string) {
	if len(s) > math.MaxUint16 {
		m.err = ErrMessageFull
		return
	}
	m.PutU16(uint16(len(s)))
	if b := m.grow(len(s)); b != nil {
		copy(b, s)
	}
}

func (m *Message) take(n int) []byte {
	if m.err != nil {
		return nil
	}
	if m.off+n > len(m.buf) {
		m.err = ErrTruncated
		return nil
	}
	b := m.buf[m.off : m.off+n]
	m.off += n
	return b
}

func (m *Message) U8() uint8 {
	if b := m.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (m *Message) U16() uint16 {
	if b := m.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (m *Message) U32() uint32 {
	if b := m.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (m *Message) F32() float32 {
	return math.Float32frombits(m.U32())
}

func (m *Message) F64() float64 {
	if b := m.take(8); b != nil {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// Text reads a string written by PutString.
func (m *Message) Text() string {
	n := int(m.U16())
	if b := m.take(n); b != nil {
		return string(b)
	}
	return ""
}
