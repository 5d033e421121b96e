package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deedles.dev/wlkit/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuffer holds message data that has been read from the socket
// but not yet decoded. The Read methods are sticky: once one of them
// fails, the rest return zero values and Err reports the first
// failure.
type MessageBuffer struct {
	sender uint32
	op     uint16
	size   uint16
	data   bytes.Reader
	conn   *Conn
	files  []*os.File
	nfiles int
	err    error
	args   []any
}

// ReadMessage reads message data from the socket into a buffer.
func ReadMessage(c *Conn) (*MessageBuffer, error) {
	mr := MessageBuffer{conn: c}

	var hdr [headerSize]byte
	_, err := io.ReadFull(c.r, hdr[:])
	if err != nil {
		return nil, fmt.Errorf("read message header: %w", err)
	}

	mr.sender = bin.Value[uint32]([4]byte(hdr[:4]))
	so := bin.Value[uint32]([4]byte(hdr[4:]))
	size := so >> 16
	mr.op = uint16(so & 0xFFFF)

	if (size < headerSize) || (size > MaxMessageSize) || (size%4 != 0) {
		return nil, fmt.Errorf("invalid message size: %v", size)
	}
	mr.size = uint16(size)

	data := make([]byte, size-headerSize)
	_, err = io.ReadFull(c.r, data)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}
	mr.data.Reset(data)

	return &mr, nil
}

// NewMessageBuffer creates a MessageBuffer from already encoded
// argument data. File descriptors referenced by the message are taken
// from files in order.
func NewMessageBuffer(sender uint32, op uint16, data []byte, files ...*os.File) *MessageBuffer {
	mr := MessageBuffer{
		sender: sender,
		op:     op,
		size:   uint16(len(data) + headerSize),
		files:  files,
	}
	mr.data.Reset(data)
	return &mr
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() uint16 {
	return r.size
}

// Err returns the first error encountered while decoding arguments.
func (r *MessageBuffer) Err() error {
	if errors.Is(r.err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return r.err
}

func (r *MessageBuffer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *MessageBuffer) ReadInt() (v int32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[int32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() (v uint32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[uint32](&r.data)
	r.args = append(r.args, v)
	return v
}

// ReadObject reads an object ID. It is the same as ReadUint, but the
// value is recorded as an object for debugging output.
func (r *MessageBuffer) ReadObject() ObjectID {
	if r.err != nil {
		return 0
	}

	v, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.fail(err)
		return 0
	}
	r.args = append(r.args, ObjectID(v))
	return ObjectID(v)
}

func (r *MessageBuffer) ReadNewID() NewID {
	return NewID{
		Interface: r.ReadString(),
		Version:   r.ReadUint(),
		ID:        r.ReadUint(),
	}
}

func (r *MessageBuffer) ReadFixed() (v Fixed) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[Fixed](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadString() string {
	if r.err != nil {
		return ""
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.fail(err)
		return ""
	}
	if length == 0 {
		// Null string.
		r.args = append(r.args, "")
		return ""
	}
	if int64(length) > int64(r.data.Len()) {
		r.fail(fmt.Errorf("string length %v exceeds message size", length))
		return ""
	}
	pad := padding(length)

	var str strings.Builder
	str.Grow(int(length + pad))
	_, err = io.CopyN(&str, &r.data, int64(length+pad))
	if err != nil {
		r.fail(err)
		return ""
	}
	v := str.String()
	if v[length-1] != 0 {
		r.fail(errors.New("string is not null-terminated"))
		return ""
	}

	r.args = append(r.args, v[:length-1])
	return v[:length-1]
}

func (r *MessageBuffer) ReadArray() []byte {
	if r.err != nil {
		return nil
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.fail(err)
		return nil
	}
	if int64(length) > int64(r.data.Len()) {
		r.fail(fmt.Errorf("array length %v exceeds message size", length))
		return nil
	}
	pad := padding(length)

	buf := make([]byte, length+pad)
	_, err = io.ReadFull(&r.data, buf)
	if err != nil {
		r.fail(err)
		return nil
	}

	r.args = append(r.args, buf[:length])
	return buf[:length]
}

// ReadFile claims the next file descriptor received on the
// connection. The caller owns the returned file and must close it.
// Unlike the other Read methods, ReadFile claims a descriptor even
// after an earlier error so that the descriptor can be closed.
func (r *MessageBuffer) ReadFile() *os.File {
	r.nfiles++

	var fd int
	switch {
	case len(r.files) > 0:
		f := r.files[0]
		r.files = r.files[1:]
		r.args = append(r.args, f)
		return f

	case r.conn != nil:
		var ok bool
		fd, ok = r.conn.popFD()
		if !ok {
			r.fail(errors.New("no more file descriptors"))
			return nil
		}

	default:
		r.fail(errors.New("no more file descriptors"))
		return nil
	}

	unix.CloseOnExec(fd)
	f := os.NewFile(uintptr(fd), "wayland-fd-"+strconv.FormatInt(int64(fd), 10))
	r.args = append(r.args, f)
	return f
}

// ReadArgs decodes the message's arguments according to m's
// signature. Objects and new_ids are returned as ObjectIDs. Any files
// claimed in the process are returned as *os.File values, nil if the
// descriptor was missing, and are owned by the caller.
func (r *MessageBuffer) ReadArgs(m Message) []any {
	args := make([]any, 0, len(m.Signature))
	for _, arg := range m.Args() {
		switch arg.Type {
		case ArgInt:
			args = append(args, r.ReadInt())
		case ArgUint:
			args = append(args, r.ReadUint())
		case ArgFixed:
			args = append(args, r.ReadFixed())
		case ArgString:
			args = append(args, r.ReadString())
		case ArgObject, ArgNewID:
			args = append(args, r.ReadObject())
		case ArgArray:
			args = append(args, r.ReadArray())
		case ArgFD:
			args = append(args, r.ReadFile())
		}
	}
	return args
}

// Verify checks the object and new_id arguments of the message
// against m's signature without consuming anything. It returns a
// NullArgError for the first zero new_id or non-nullable zero object.
// Malformed data is left for the Read methods to report.
func (r *MessageBuffer) Verify(m Message) error {
	data := r.data
	for i, arg := range m.Args() {
		switch arg.Type {
		case ArgFD:
			continue

		case ArgString, ArgArray:
			length, err := bin.Read[uint32](&data)
			if err != nil {
				return nil
			}
			skip := int64(length) + int64(padding(length))
			if skip > int64(data.Len()) {
				return nil
			}
			data.Seek(skip, io.SeekCurrent)
			continue
		}

		v, err := bin.Read[uint32](&data)
		if err != nil {
			return nil
		}
		if v != 0 {
			continue
		}
		if (arg.Type == ArgNewID) || ((arg.Type == ArgObject) && !arg.Nullable) {
			return NullArgError{Message: m.Name, Index: i, Type: arg.Type}
		}
	}
	return nil
}

// CloseUnclaimed closes the file descriptors that m's signature says
// the message carries but that were never claimed with ReadFile.
// Leaving them queued would hand them to the wrong message later.
func (r *MessageBuffer) CloseUnclaimed(m Message) {
	var want int
	for _, arg := range m.Args() {
		if arg.Type == ArgFD {
			want++
		}
	}

	for r.nfiles < want {
		if f := r.ReadFile(); f != nil {
			f.Close()
		}
	}
}

// Discard decodes the message according to m and closes any file
// descriptors it carried. It is used for messages whose target can no
// longer handle them.
func (r *MessageBuffer) Discard(m Message) {
	for _, arg := range r.ReadArgs(m) {
		if f, ok := arg.(*os.File); ok && (f != nil) {
			f.Close()
		}
	}
}

func (r *MessageBuffer) Debug(sender fmt.Stringer, method string) string {
	return fmt.Sprintf("%v.%v(%v)", sender, method, formatArgs(r.args))
}

func formatArgs(args []any) string {
	strs := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			strs = append(strs, strconv.Quote(arg))
		case *os.File:
			strs = append(strs, "fd "+strconv.FormatUint(uint64(arg.Fd()), 10))
		case ObjectID:
			strs = append(strs, "obj "+strconv.FormatUint(uint64(arg), 10))
		case fmt.Stringer:
			strs = append(strs, arg.String())
		default:
			strs = append(strs, fmt.Sprint(arg))
		}
	}
	return strings.Join(strs, ", ")
}
