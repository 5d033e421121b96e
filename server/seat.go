package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Seat is a wl_seat global. Input devices obtained from it are
// created but never sent input. Seats are mostly useful as the target
// of extension protocols that refer to them.
type Seat struct {
	global *Global
	name   string
	caps   uint32
}

// NewSeat creates a wl_seat global.
func NewSeat(display *Display, name string, caps uint32) *Seat {
	s := Seat{name: name, caps: caps}
	s.global = NewGlobal(display, wayland.Seat, wayland.Seat.Version, &s)
	s.global.SetData(&s)
	return &s
}

// SeatFromResource returns the seat that a wl_seat resource is bound
// to. The seat may have since been destroyed.
func SeatFromResource(r *Resource) (*Seat, bool) {
	if (r == nil) || (r.iface.Name != wayland.Seat.Name) {
		return nil, false
	}
	b, ok := BindFromResource(r)
	if !ok {
		return nil, false
	}
	s, ok := b.global.Data().(*Seat)
	return s, ok
}

func (s *Seat) Global() *Global {
	return s.global
}

func (s *Seat) Name() string {
	return s.name
}

func (s *Seat) Capabilities() uint32 {
	return s.caps
}

// Alive reports whether the seat's global still exists.
func (s *Seat) Alive() bool {
	return (s != nil) && s.global.Alive()
}

// SetCapabilities changes the seat's capabilities and tells every
// client about it.
func (s *Seat) SetCapabilities(caps uint32) {
	s.caps = caps
	s.global.Broadcast(wayland.SeatEventCapabilities, caps)
}

// Destroy removes the seat's global.
func (s *Seat) Destroy() {
	s.global.Destroy()
}

func (s *Seat) Bind(b *Bind) (Implementation, error) {
	b.Send(wayland.SeatEventCapabilities, s.caps)
	if b.Version() >= 2 {
		b.Send(wayland.SeatEventName, s.name)
	}
	return ImplementationFunc(s.request), nil
}

func (s *Seat) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	var (
		iface *wire.Interface
		want  uint32
	)
	switch op {
	case wayland.SeatGetPointer:
		iface, want = wayland.Pointer, wayland.SeatCapabilityPointer
	case wayland.SeatGetKeyboard:
		iface, want = wayland.Keyboard, wayland.SeatCapabilityKeyboard
	case wayland.SeatGetTouch:
		iface, want = wayland.Touch, wayland.SeatCapabilityTouch
	case wayland.SeatRelease:
		return nil
	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}

	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	dev, err := NewResource(r.client, iface, r.version, uint32(id), nil)
	if err != nil {
		return err
	}
	if s.caps&want == 0 {
		// The capability may have been removed after the client last
		// checked, so this is not an error.
		dev.SetInert()
	}
	return nil
}
