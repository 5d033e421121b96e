package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Seat is a wl_seat.
type Seat struct {
	Capabilities func(caps uint32)
	Name         func(name string)

	proxy *Proxy
}

// BindSeat binds the wl_seat global with the given name.
func BindSeat(registry *Registry, name, version uint32) *Seat {
	var seat Seat
	seat.proxy = registry.Bind(name, wayland.Seat, version, EventFunc(seat.event))
	seat.proxy.SetData(&seat)
	return &seat
}

func (seat *Seat) Proxy() *Proxy {
	if seat == nil {
		return nil
	}
	return seat.proxy
}

func (seat *Seat) GetPointer() *Pointer {
	p := Pointer{display: seat.proxy.display}
	p.proxy = NewProxy(seat.proxy.display, wayland.Pointer, seat.proxy.version, EventFunc(p.event))
	p.proxy.SetData(&p)
	seat.proxy.Request(wayland.SeatGetPointer, p.proxy)
	return &p
}

func (seat *Seat) GetKeyboard() *Keyboard {
	var kb Keyboard
	kb.proxy = NewProxy(seat.proxy.display, wayland.Keyboard, seat.proxy.version, EventFunc(kb.event))
	kb.proxy.SetData(&kb)
	seat.proxy.Request(wayland.SeatGetKeyboard, kb.proxy)
	return &kb
}

// GetTouch returns a wl_touch proxy. Touch events are not decoded.
func (seat *Seat) GetTouch() *Proxy {
	p := NewProxy(seat.proxy.display, wayland.Touch, seat.proxy.version, nil)
	seat.proxy.Request(wayland.SeatGetTouch, p)
	return p
}

// Release releases the seat. Before version 5 the proxy is only
// destroyed locally.
func (seat *Seat) Release() error {
	return seat.proxy.Destroy()
}

func (seat *Seat) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.SeatEventCapabilities:
		caps := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if seat.Capabilities != nil {
			seat.Capabilities(caps)
		}
		return nil

	case wayland.SeatEventName:
		name := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if seat.Name != nil {
			seat.Name(name)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}
