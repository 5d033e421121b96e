package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"golang.org/x/exp/maps"
)

// Interface is a global's interface as advertised by the registry.
type Interface struct {
	Name    string
	Version uint32
}

// Is reports whether the advertised interface is iface.
func (i Interface) Is(iface *wire.Interface) bool {
	return i.Name == iface.Name
}

// Registry is a wl_registry. It keeps track of every global the
// server has advertised.
type Registry struct {
	Global       func(name uint32, iface Interface)
	GlobalRemove func(name uint32)

	proxy   *Proxy
	globals map[uint32]Interface
}

func newRegistry(display *Display) *Registry {
	registry := Registry{globals: make(map[uint32]Interface)}
	registry.proxy = NewProxy(display, wayland.Registry, 1, EventFunc(registry.event))
	registry.proxy.SetData(&registry)
	return &registry
}

func (registry *Registry) Proxy() *Proxy {
	return registry.proxy
}

// Globals returns every global that is currently advertised, keyed by
// name.
func (registry *Registry) Globals() map[uint32]Interface {
	return maps.Clone(registry.globals)
}

// Find returns the lowest named global that implements iface.
func (registry *Registry) Find(iface *wire.Interface) (name uint32, version uint32, ok bool) {
	for n, g := range registry.globals {
		if !g.Is(iface) {
			continue
		}
		if !ok || (n < name) {
			name, version, ok = n, g.Version, true
		}
	}
	return name, version, ok
}

// Bind binds the global with the given name and returns the new
// proxy. version must not be higher than the global's advertised
// version.
func (registry *Registry) Bind(name uint32, iface *wire.Interface, version uint32, handler EventHandler) *Proxy {
	p := NewProxy(registry.proxy.display, iface, version, handler)
	registry.proxy.Request(wayland.RegistryBind, name, iface.Name, version, p)
	return p
}

func (registry *Registry) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.RegistryEventGlobal:
		name := msg.ReadUint()
		iface := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		g := Interface{Name: iface, Version: version}
		registry.globals[name] = g
		if registry.Global != nil {
			registry.Global(name, g)
		}
		return nil

	case wayland.RegistryEventGlobalRemove:
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		delete(registry.globals, name)
		if registry.GlobalRemove != nil {
			registry.GlobalRemove(name)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}
