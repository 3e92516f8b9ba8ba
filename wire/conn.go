package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

const (
	DefaultReadTimeout  = 10 * time.Millisecond
	DefaultWriteTimeout = 2 * time.Second
)

// Conn frames a stream connection. A read that times out simply yields no
// frames; any other failure closes the connection for good.
type Conn struct {
	c      net.Conn
	framer *Framer
	buf    []byte
	closed bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewConn(c net.Conn) *Conn {
	return &Conn{
		c:            c,
		framer:       NewFramer(),
		buf:          make([]byte, MaxMessageSize*2),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.c.RemoteAddr()
}

func (c *Conn) Closed() bool {
	return c.closed
}

// Receive waits up to ReadTimeout for data and returns every frame that is
// now complete.
func (c *Conn) Receive() ([][]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}

	frames, err := c.drain()
	if err != nil || len(frames) > 0 {
		return frames, err
	}

	if err := c.c.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	n, err := c.c.Read(c.buf)
	if n > 0 {
		c.framer.Write(c.buf[:n])
	}
	if err != nil && !IsTimeout(err) {
		if errors.Is(err, io.EOF) {
			// hand out what the peer sent before closing; the next call
			// reports ErrClosed
			frames, derr := c.drain()
			c.Close()
			if derr == nil && len(frames) > 0 {
				return frames, nil
			}
			return nil, ErrClosed
		}
		c.Close()
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return c.drain()
}

func (c *Conn) drain() ([][]byte, error) {
	var frames [][]byte
	for {
		frame, ok, err := c.framer.Next()
		if err != nil {
			c.Close()
			return nil, err
		}
		if !ok {
			return frames, nil
		}
		frames = append(frames, frame)
	}
}

// Send writes the frames back to back.
func (c *Conn) Send(frames ...[]byte) error {
	if c.closed {
		return ErrClosed
	}
	if len(frames) == 0 {
		return nil
	}

	if err := c.c.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
		c.Close()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	bufs := make(net.Buffers, len(frames))
	copy(bufs, frames)
	if _, err := bufs.WriteTo(c.c); err != nil {
		c.Close()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.framer.Reset()
	return c.c.Close()
}

// IsTimeout reports whether err is an expired socket deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
