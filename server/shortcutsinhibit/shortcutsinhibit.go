// Package shortcutsinhibit implements the server side of the
// zwp_keyboard_shortcuts_inhibit_unstable_v1 protocol.
package shortcutsinhibit

import (
	"deedles.dev/wlkit/proto/shortcutsinhibit"
	"deedles.dev/wlkit/proto/wayland"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/wire"
)

type key struct {
	surface *wl.Surface
	seat    *wl.Seat
}

// Manager is the zwp_keyboard_shortcuts_inhibit_manager_v1 global.
// It does not activate inhibitors by itself. The compositor should
// listen with OnInhibitor and call Activate when the surface has
// keyboard focus.
type Manager struct {
	global     *wl.Global
	inhibitors map[key]*Inhibitor

	onInhibitor wl.Signal[*Inhibitor]
}

func New(display *wl.Display) *Manager {
	m := Manager{inhibitors: make(map[key]*Inhibitor)}
	m.global = wl.NewGlobal(display, shortcutsinhibit.Manager, 1, &m)
	m.global.SetData(&m)
	return &m
}

func (m *Manager) Global() *wl.Global {
	return m.global
}

// OnInhibitor registers f to be called for every new inhibitor.
func (m *Manager) OnInhibitor(f func(*Inhibitor)) *wl.Listener[*Inhibitor] {
	return m.onInhibitor.Add(f)
}

// Inhibitor returns the inhibitor for surface on seat, if there is one.
func (m *Manager) Inhibitor(surface *wl.Surface, seat *wl.Seat) (*Inhibitor, bool) {
	inh, ok := m.inhibitors[key{surface, seat}]
	return inh, ok
}

func (m *Manager) Bind(b *wl.Bind) (wl.Implementation, error) {
	return wl.ImplementationFunc(m.request), nil
}

func (m *Manager) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case shortcutsinhibit.ManagerDestroy:
		return nil

	case shortcutsinhibit.ManagerInhibitShortcuts:
		id := msg.ReadObject()
		surfaceID := msg.ReadObject()
		seatID := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		surfaceRes, err := r.Client().ResolveObject(surfaceID, wayland.Surface)
		if err != nil {
			return err
		}
		seatRes, err := r.Client().ResolveObject(seatID, wayland.Seat)
		if err != nil {
			return err
		}
		surface, _ := wl.SurfaceFromResource(surfaceRes)
		seat, _ := wl.SeatFromResource(seatRes)

		k := key{surface, seat}
		if _, ok := m.inhibitors[k]; ok {
			return r.Errorf(shortcutsinhibit.ManagerErrorAlreadyInhibited, "shortcuts already inhibited for surface and seat")
		}

		res, err := wl.NewResource(r.Client(), shortcutsinhibit.Inhibitor, r.Version(), uint32(id), nil)
		if err != nil {
			return err
		}

		inh := Inhibitor{
			manager:  m,
			resource: res,
			surface:  surface,
			seat:     seat,
		}
		res.SetData(&inh)
		res.SetImplementation(wl.ImplementationFunc(inh.request))
		res.OnDestroy(func(*wl.Resource) { inh.remove() })
		if surface != nil {
			inh.surfaceLis = surface.Resource().OnDestroy(func(*wl.Resource) { inh.remove() })
		}

		m.inhibitors[k] = &inh
		m.onInhibitor.Emit(&inh)
		return nil

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}

// Inhibitor is a zwp_keyboard_shortcuts_inhibitor_v1.
type Inhibitor struct {
	manager    *Manager
	resource   *wl.Resource
	surface    *wl.Surface
	seat       *wl.Seat
	surfaceLis *wl.Listener[*wl.Resource]
	active     bool
	removed    bool
}

func (inh *Inhibitor) Resource() *wl.Resource {
	return inh.resource
}

// Surface returns the surface that shortcuts are inhibited for. It is
// nil once the surface has been destroyed.
func (inh *Inhibitor) Surface() *wl.Surface {
	if inh.removed {
		return nil
	}
	return inh.surface
}

// Seat returns the seat that shortcuts are inhibited on, or nil if it
// no longer exists.
func (inh *Inhibitor) Seat() *wl.Seat {
	if !inh.seat.Alive() {
		return nil
	}
	return inh.seat
}

// Active reports whether the inhibitor is active.
func (inh *Inhibitor) Active() bool {
	return inh.active
}

// Activate sends active unless the inhibitor is already active.
func (inh *Inhibitor) Activate() {
	if inh.active || inh.removed || !inh.resource.Alive() {
		return
	}
	inh.active = true
	inh.resource.Send(shortcutsinhibit.InhibitorEventActive)
}

// Deactivate sends inactive if the inhibitor is active.
func (inh *Inhibitor) Deactivate() {
	if !inh.active || !inh.resource.Alive() {
		return
	}
	inh.active = false
	inh.resource.Send(shortcutsinhibit.InhibitorEventInactive)
}

func (inh *Inhibitor) remove() {
	if inh.removed {
		return
	}
	inh.removed = true
	inh.active = false

	inh.surfaceLis.Remove()
	inh.surfaceLis = nil

	k := key{inh.surface, inh.seat}
	if inh.manager.inhibitors[k] == inh {
		delete(inh.manager.inhibitors, k)
	}
}

func (inh *Inhibitor) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case shortcutsinhibit.InhibitorDestroy:
		return nil

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}
