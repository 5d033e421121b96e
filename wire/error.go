package wire

import (
	"fmt"
)

// UnknownOpError is returned when a message arrives with an opcode
// that its target's interface does not define.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// UnknownSenderIDError is returned by an attempt to dispatch an
// incoming message that indicates a method call on an object that
// doesn't exist.
type UnknownSenderIDError struct {
	Msg *MessageBuffer
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v", err.Msg.Sender())
}

// VersionError is returned when a message is used on an object whose
// version predates it.
type VersionError struct {
	Interface string
	Message   string
	Since     uint32
	Version   uint32
}

func (err VersionError) Error() string {
	return fmt.Sprintf("%v.%v requires version %v, but object has version %v", err.Interface, err.Message, err.Since, err.Version)
}

// ArgumentError is returned by WriteArgs when a value does not match
// the message's signature.
type ArgumentError struct {
	Message string
	Index   int
	Want    ArgType
	Got     any
}

func (err ArgumentError) Error() string {
	return fmt.Sprintf("%v: argument %v: expected %v, got %T", err.Message, err.Index, err.Want, err.Got)
}

// NullArgError is returned by MessageBuffer.Verify for a zero new_id,
// or a zero object that the message's signature does not mark as
// nullable.
type NullArgError struct {
	Message string
	Index   int
	Type    ArgType
}

func (err NullArgError) Error() string {
	return fmt.Sprintf("%v: argument %v: null %v", err.Message, err.Index, err.Type)
}
