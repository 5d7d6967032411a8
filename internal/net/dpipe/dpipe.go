// Package dpipe provides the pipe works like datagram protocol on memory.
package dpipe

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/deadline"
)

// Pipe creates pair of non-stream conn on memory.
// Close of the one end doesn't make effect to the other end.
func Pipe() (net.Conn, net.Conn) {
	ch0 := make(chan []byte, 1000)
	ch1 := make(chan []byte, 1000)

	return &conn{
			rCh:           ch0,
			wCh:           ch1,
			closed:        make(chan struct{}),
			readDeadline:  deadline.New(),
			writeDeadline: deadline.New(),
		}, &conn{
			rCh:           ch1,
			wCh:           ch0,
			closed:        make(chan struct{}),
			readDeadline:  deadline.New(),
			writeDeadline: deadline.New(),
		}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

type conn struct {
	rCh       chan []byte
	wCh       chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	readDeadline  *deadline.Deadline
	writeDeadline *deadline.Deadline
}

func (*conn) LocalAddr() net.Addr  { return pipeAddr{} }
func (*conn) RemoteAddr() net.Addr { return pipeAddr{} }

func (c *conn) SetDeadline(t time.Time) error {
	c.readDeadline.Set(t)
	c.writeDeadline.Set(t)
	return nil
}

func (c *conn) SetReadDeadline(t time.Time) error {
	c.readDeadline.Set(t)
	return nil
}

func (c *conn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline.Set(t)
	return nil
}

func (c *conn) Read(data []byte) (n int, err error) {
	select {
	case <-c.closed:
		return 0, io.EOF
	case <-c.readDeadline.Done():
		return 0, &timeoutError{c.readDeadline.Err()}
	default:
	}
	select {
	case d := <-c.rCh:
		if len(d) <= len(data) {
			copy(data, d)
			return len(d), nil
		}
		copy(data, d[:len(data)])
		return len(data), nil
	case <-c.closed:
		return 0, io.EOF
	case <-c.readDeadline.Done():
		return 0, &timeoutError{c.readDeadline.Err()}
	}
}

func (c *conn) Write(data []byte) (n int, err error) {
	select {
	case <-c.closed:
		return 0, io.ErrClosedPipe
	case <-c.writeDeadline.Done():
		return 0, &timeoutError{c.writeDeadline.Err()}
	default:
	}
	select {
	case <-c.closed:
		return 0, io.ErrClosedPipe
	case <-c.writeDeadline.Done():
		return 0, &timeoutError{c.writeDeadline.Err()}
	case c.wCh <- data:
	}
	return len(data), nil
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// timeoutError reports an expired deadline as a net.Error.
type timeoutError struct {
	err error
}

func (e *timeoutError) Error() string { return e.err.Error() }

func (e *timeoutError) Timeout() bool { return errors.Is(e.err, context.DeadlineExceeded) }

func (e *timeoutError) Temporary() bool { return true }

func (e *timeoutError) Unwrap() error { return e.err }
