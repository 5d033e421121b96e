package wire

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"

	"deedles.dev/wlkit/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	// Args is the original set of arguments the message was built
	// from. It is included purely for debugging purposes.
	Args []any

	sender Object
	op     uint16
	data   bytes.Buffer
	fds    []int
	err    error
}

func NewMessage(sender Object, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
	}
}

func (mb *MessageBuilder) Sender() Object {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

// Err returns the first error encountered while building the message.
func (mb *MessageBuilder) Err() error {
	return mb.err
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

// WriteObject writes the ID of v, or zero if v is nil.
func (mb *MessageBuilder) WriteObject(v Object) {
	var id uint32
	if !isNil(v) {
		id = v.ID()
	}
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	if mb.err != nil {
		return
	}

	bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v) + 1)
	bin.Write(&mb.data, length)
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	mb.pad(length)
}

// WriteNullString writes a null string argument.
func (mb *MessageBuilder) WriteNullString() {
	mb.WriteUint(0)
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v))
	bin.Write(&mb.data, length)
	mb.data.Write(v)
	mb.pad(length)
}

func (mb *MessageBuilder) pad(length uint32) {
	for range padding(length) {
		mb.data.WriteByte(0)
	}
}

// WriteFile attaches a duplicate of v's descriptor to the message. The
// caller keeps ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}
	if v == nil {
		mb.err = errors.New("nil file")
		return
	}
	if len(mb.fds) >= MaxFDsOut {
		mb.err = fmt.Errorf("too many file descriptors: %v", len(mb.fds)+1)
		return
	}

	fd, err := unix.FcntlInt(v.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		mb.err = fmt.Errorf("duplicate file descriptor: %w", err)
		return
	}
	mb.fds = append(mb.fds, fd)
}

// WriteArgs writes args according to m's signature. Integer arguments
// may be of any integer type, including named enum types.
func (mb *MessageBuilder) WriteArgs(m Message, args ...any) {
	if mb.err != nil {
		return
	}
	if mb.Method == "" {
		mb.Method = m.Name
	}
	mb.Args = args

	sig := m.Args()
	if len(sig) != len(args) {
		mb.err = fmt.Errorf("%v: expected %v arguments, got %v", m.Name, len(sig), len(args))
		return
	}

	for i, arg := range sig {
		if !mb.writeArg(arg, args[i]) {
			mb.err = ArgumentError{Message: m.Name, Index: i, Want: arg.Type, Got: args[i]}
			return
		}
	}
}

func (mb *MessageBuilder) writeArg(arg Arg, v any) bool {
	switch arg.Type {
	case ArgInt:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || !rv.CanInt() {
			return false
		}
		mb.WriteInt(int32(rv.Int()))

	case ArgUint:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || !rv.CanUint() {
			return false
		}
		mb.WriteUint(uint32(rv.Uint()))

	case ArgFixed:
		switch v := v.(type) {
		case Fixed:
			mb.WriteFixed(v)
		case float64:
			mb.WriteFixed(FixedFloat(v))
		default:
			return false
		}

	case ArgString:
		v, ok := v.(string)
		if !ok {
			return false
		}
		if arg.Nullable && (v == "") {
			mb.WriteNullString()
			return true
		}
		mb.WriteString(v)

	case ArgObject, ArgNewID:
		if v == nil {
			if !arg.Nullable {
				return false
			}
			mb.WriteUint(0)
			return true
		}
		obj, ok := v.(Object)
		if !ok {
			return false
		}
		if isNil(obj) && !arg.Nullable {
			return false
		}
		mb.WriteObject(obj)

	case ArgArray:
		v, ok := v.([]byte)
		if !ok {
			return false
		}
		mb.WriteArray(v)

	case ArgFD:
		v, ok := v.(*os.File)
		if !ok || (v == nil) {
			return false
		}
		mb.WriteFile(v)

	default:
		return false
	}

	return true
}

// Build builds the message and sends it to c. The MessageBuilder
// should not be used again after this method is called. Any file
// descriptors attached to the message are closed regardless of
// whether sending succeeded.
func (mb *MessageBuilder) Build(c *Conn) error {
	defer mb.Close()

	if mb.err != nil {
		return mb.err
	}

	length := uint32(headerSize + mb.data.Len())
	if length > MaxMessageSize {
		return fmt.Errorf("message too large: %v bytes", length)
	}

	msg := make([]byte, 0, length)
	msg = bin.Append(msg, mb.sender.ID())
	msg = bin.Append(msg, (length<<16)|uint32(mb.op))
	msg = append(msg, mb.data.Bytes()...)

	return c.write(msg, mb.fds)
}

// Close releases the file descriptors held by the message without
// sending it. It is safe to call more than once.
func (mb *MessageBuilder) Close() error {
	errs := make([]error, 0, len(mb.fds))
	for _, fd := range mb.fds {
		errs = append(errs, unix.Close(fd))
	}
	mb.fds = nil
	return errors.Join(errs...)
}

func (mb *MessageBuilder) String() string {
	return fmt.Sprintf("%v.%v(%v)", mb.sender, mb.Method, formatArgs(mb.Args))
}
