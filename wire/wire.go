// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is primarly used by the client and server
// packages and by protocol extension wrappers built on top of them.
package wire

import (
	"fmt"
	"reflect"
)

const (
	// MaxMessageSize is the largest message, header included, that
	// either side will send or accept.
	MaxMessageSize = 4096

	// MaxFDsOut is the largest number of file descriptors that will be
	// attached to a single outgoing message.
	MaxFDsOut = 28

	headerSize = 8
)

// Object represents a Wayland protocol object. Anything that can be
// the sender of a message or be referenced by one implements it.
type Object interface {
	ID() uint32
}

// NewID is the argument of a new_id whose interface is not fixed by
// the protocol, such as the one sent with wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func (id NewID) String() string {
	return fmt.Sprintf("new id %v@%v (v%v)", id.Interface, id.ID, id.Version)
}

// ObjectID is a raw object ID that can be used as a message argument
// in place of an Object.
type ObjectID uint32

func (id ObjectID) ID() uint32 {
	return uint32(id)
}

func padding(n uint32) uint32 {
	return (4 - (n % 4)) % 4
}

func isNil(v Object) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	return (rv.Kind() == reflect.Pointer) && rv.IsNil()
}
