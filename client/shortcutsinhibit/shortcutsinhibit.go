// Package shortcutsinhibit implements the client side of
// keyboard-shortcuts-inhibit-unstable-v1.
package shortcutsinhibit

import (
	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/proto/shortcutsinhibit"
	"deedles.dev/wlkit/wire"
)

// Manager is a zwp_keyboard_shortcuts_inhibit_manager_v1.
type Manager struct {
	proxy *wl.Proxy
}

func Bind(registry *wl.Registry, name, version uint32) *Manager {
	var m Manager
	m.proxy = registry.Bind(name, shortcutsinhibit.Manager, version, nil)
	m.proxy.SetData(&m)
	return &m
}

func (m *Manager) Proxy() *wl.Proxy {
	return m.proxy
}

// InhibitShortcuts asks the compositor to pass its own shortcuts to
// surface while it has keyboard focus from seat. A surface may only
// have one inhibitor per seat.
func (m *Manager) InhibitShortcuts(surface *wl.Surface, seat *wl.Seat) *Inhibitor {
	var inh Inhibitor
	inh.proxy = wl.NewProxy(m.proxy.Display(), shortcutsinhibit.Inhibitor, m.proxy.Version(), wl.EventFunc(inh.event))
	inh.proxy.SetData(&inh)
	m.proxy.Request(shortcutsinhibit.ManagerInhibitShortcuts, inh.proxy, surface.Proxy(), seat.Proxy())
	return &inh
}

func (m *Manager) Destroy() error {
	return m.proxy.Destroy()
}

// Inhibitor is a zwp_keyboard_shortcuts_inhibitor_v1.
type Inhibitor struct {
	Active   func()
	Inactive func()

	proxy  *wl.Proxy
	active bool
}

func (inh *Inhibitor) Proxy() *wl.Proxy {
	return inh.proxy
}

// IsActive reports whether the compositor last said that the
// inhibitor is active.
func (inh *Inhibitor) IsActive() bool {
	return inh.active
}

func (inh *Inhibitor) Destroy() error {
	return inh.proxy.Destroy()
}

func (inh *Inhibitor) event(p *wl.Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case shortcutsinhibit.InhibitorEventActive:
		inh.active = true
		if inh.Active != nil {
			inh.Active()
		}
		return nil

	case shortcutsinhibit.InhibitorEventInactive:
		inh.active = false
		if inh.Inactive != nil {
			inh.Inactive()
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.Interface().Name, Type: "event", Op: op}
	}
}
