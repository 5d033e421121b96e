package wl

import (
	"errors"
	"fmt"
)

var (
	// ErrNilProxy is returned when a request is made through a nil
	// proxy.
	ErrNilProxy = errors.New("nil proxy")

	// ErrProxyDestroyed is returned when a request is made through a
	// proxy that has already been destroyed.
	ErrProxyDestroyed = errors.New("proxy destroyed")
)

// ProtocolError is a fatal error sent by the server with
// wl_display.error. Once one has been received, the display can no
// longer be used.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("%v@%v: error %v: %v", err.Interface, err.ObjectID, err.Code, err.Message)
}
