package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Pointer is a wl_pointer. Surfaces passed to the callbacks are nil
// if the client has no Surface wrapper for the object.
type Pointer struct {
	Enter        func(serial uint32, s *Surface, x, y wire.Fixed)
	Leave        func(serial uint32, s *Surface)
	Motion       func(time uint32, x, y wire.Fixed)
	Button       func(serial, time uint32, button PointerButton, state uint32)
	Axis         func(time, axis uint32, value wire.Fixed)
	Frame        func()
	AxisSource   func(source uint32)
	AxisStop     func(time, axis uint32)
	AxisDiscrete func(axis uint32, discrete int32)

	proxy   *Proxy
	display *Display
}

func (p *Pointer) Proxy() *Proxy {
	return p.proxy
}

// SetCursor sets the pointer image. A nil surface hides the cursor.
func (p *Pointer) SetCursor(serial uint32, s *Surface, hotspotX, hotspotY int32) error {
	return p.proxy.Request(wayland.PointerSetCursor, serial, s.Proxy(), hotspotX, hotspotY)
}

func (p *Pointer) Release() error {
	return p.proxy.Destroy()
}

func (p *Pointer) surface(id wire.ObjectID) *Surface {
	proxy, _ := p.display.Object(uint32(id))
	s, _ := SurfaceFromProxy(proxy)
	return s
}

func (p *Pointer) event(proxy *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.PointerEventEnter:
		serial := msg.ReadUint()
		s := msg.ReadObject()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.Enter != nil {
			p.Enter(serial, p.surface(s), x, y)
		}

	case wayland.PointerEventLeave:
		serial := msg.ReadUint()
		s := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.Leave != nil {
			p.Leave(serial, p.surface(s))
		}

	case wayland.PointerEventMotion:
		time := msg.ReadUint()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.Motion != nil {
			p.Motion(time, x, y)
		}

	case wayland.PointerEventButton:
		serial, time := msg.ReadUint(), msg.ReadUint()
		button, state := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.Button != nil {
			p.Button(serial, time, PointerButton(button), state)
		}

	case wayland.PointerEventAxis:
		time, axis := msg.ReadUint(), msg.ReadUint()
		value := msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.Axis != nil {
			p.Axis(time, axis, value)
		}

	case wayland.PointerEventFrame:
		if p.Frame != nil {
			p.Frame()
		}

	case wayland.PointerEventAxisSource:
		source := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.AxisSource != nil {
			p.AxisSource(source)
		}

	case wayland.PointerEventAxisStop:
		time, axis := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.AxisStop != nil {
			p.AxisStop(time, axis)
		}

	case wayland.PointerEventAxisDiscrete:
		axis := msg.ReadUint()
		discrete := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.AxisDiscrete != nil {
			p.AxisDiscrete(axis, discrete)
		}

	case wayland.PointerEventAxisValue120, wayland.PointerEventAxisRelativeDirection:
		// Not exposed.

	default:
		return wire.UnknownOpError{Interface: proxy.iface.Name, Type: "event", Op: op}
	}

	return nil
}

// PointerButton is a Linux input event code for a button.
type PointerButton uint32

const (
	PointerButtonLeft PointerButton = 0x110 + iota
	PointerButtonRight
	PointerButtonMiddle
	PointerButtonSide
	PointerButtonExtra
	PointerButtonForward
	PointerButtonBack
	PointerButtonTask
)

func (b PointerButton) String() string {
	switch b {
	case PointerButtonLeft:
		return "left"
	case PointerButtonRight:
		return "right"
	case PointerButtonMiddle:
		return "middle"
	case PointerButtonSide:
		return "side"
	case PointerButtonExtra:
		return "extra"
	case PointerButtonForward:
		return "forward"
	case PointerButtonBack:
		return "back"
	case PointerButtonTask:
		return "task"
	}

	return "unknown"
}
