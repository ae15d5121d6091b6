package wayland

import (
	"encoding/binary"
	"errors"

	"golang.org/x/sys/unix"
)

var errShortMessage = errors.New("wayland: short message")

// request builds one wire message. Arguments are appended in protocol
// order; bytes fills in the header once the size is known.
type request struct {
	buf []byte
	oob []byte
}

func newRequest(sender, opcode uint32) *request {
	r := &request{buf: make([]byte, 8, 32)}
	binary.NativeEndian.PutUint32(r.buf[0:4], sender)
	binary.NativeEndian.PutUint32(r.buf[4:8], opcode)
	return r
}

func (r *request) uint32(v uint32) *request {
	r.buf = binary.NativeEndian.AppendUint32(r.buf, v)
	return r
}

func (r *request) int32(v int32) *request { return r.uint32(uint32(v)) }

// string appends a length-prefixed, NUL-terminated, 32-bit padded
// string.
func (r *request) string(s string) *request {
	n := len(s) + 1
	r.uint32(uint32(n))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, make([]byte, paddedLen(n)-len(s))...)
	return r
}

// fd attaches a file descriptor. Only one fd per message is supported.
func (r *request) fd(fd int) *request {
	r.oob = unix.UnixRights(fd)
	return r
}

func (r *request) bytes() []byte {
	opcode := binary.NativeEndian.Uint32(r.buf[4:8]) & 0xffff
	binary.NativeEndian.PutUint32(r.buf[4:8], uint32(len(r.buf))<<16|opcode)
	return r.buf
}

func paddedLen(n int) int { return (n + 3) &^ 3 }

// decoder reads event arguments. The first decoding error sticks and
// later reads return zero values.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	if len(d.data) < 4 {
		d.err = errShortMessage
		return 0
	}
	v := binary.NativeEndian.Uint32(d.data)
	d.data = d.data[4:]
	return v
}

func (d *decoder) int32() int32 { return int32(d.uint32()) }

func (d *decoder) string() string {
	n := int(d.uint32())
	if d.err != nil || n == 0 {
		return ""
	}
	padded := paddedLen(n)
	if len(d.data) < padded {
		d.err = errShortMessage
		return ""
	}
	s := string(d.data[:n-1])
	d.data = d.data[padded:]
	return s
}
