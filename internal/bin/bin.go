// Package bin converts the 32-bit words of the Wayland wire format,
// which are in host byte order, to and from bytes.
package bin

import (
	"encoding/binary"
	"io"
)

// Word is a type that occupies one wire word.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) (b [4]byte) {
	binary.NativeEndian.PutUint32(b[:], uint32(v))
	return b
}

func Value[T Word](data [4]byte) T {
	return T(binary.NativeEndian.Uint32(data[:]))
}

// Append appends the encoding of v to buf.
func Append[T Word](buf []byte, v T) []byte {
	return binary.NativeEndian.AppendUint32(buf, uint32(v))
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
