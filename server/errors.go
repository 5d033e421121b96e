package wl

import (
	"errors"
	"fmt"

	"deedles.dev/wlkit/proto/wayland"
)

// ProtocolError is a fatal error reported to a client with
// wl_display.error. Request handlers return one to have it posted to
// the client that sent the request, after which the client is
// disconnected.
type ProtocolError struct {
	ObjectID  uint32
	Interface string
	Code      uint32
	Message   string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("%v@%v: error %v: %v", err.Interface, err.ObjectID, err.Code, err.Message)
}

// ErrClientDestroyed is returned by operations that need a live
// client.
var ErrClientDestroyed = errors.New("client destroyed")

func displayError(code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		ObjectID:  displayID,
		Interface: wayland.Display.Name,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
	}
}

func invalidObject(format string, args ...any) *ProtocolError {
	return displayError(wayland.DisplayErrorInvalidObject, format, args...)
}

func invalidMethod(format string, args ...any) *ProtocolError {
	return displayError(wayland.DisplayErrorInvalidMethod, format, args...)
}
