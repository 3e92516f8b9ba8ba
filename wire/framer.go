package wire

import (
	"encoding/binary"
	"fmt"
)

// Framer reassembles frames from a byte stream that may deliver them split
// across reads or several at once.
type Framer struct {
	buf []byte
}

func NewFramer() *Framer {
	return &Framer{buf: make([]byte, 0, MaxMessageSize*2)}
}

// Write appends stream bytes. It never fails.
func (f *Framer) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// Next pops one complete frame. It reports false when more bytes are needed
// and ErrMalformed when the stream cannot be resynchronised.
func (f *Framer) Next() ([]byte, bool, error) {
	if len(f.buf) < prefixSize {
		return nil, false, nil
	}
	size := int(binary.LittleEndian.Uint16(f.buf))
	if size < minMessageSize || size > MaxMessageSize {
		return nil, false, fmt.Errorf("%w: size prefix %d", ErrMalformed, size)
	}
	if len(f.buf) < size {
		return nil, false, nil
	}

	frame := make([]byte, size)
	copy(frame, f.buf)
	f.buf = append(f.buf[:0], f.buf[size:]...)
	return frame, true, nil
}

// Buffered is the number of bytes waiting for the rest of their frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
