package wl

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// GlobalImpl is implemented by the objects behind globals.
type GlobalImpl interface {
	// Bind is called when a client binds the global. It may send
	// events to b to push initial state to that client and returns the
	// handler for b's requests. Returning a *ProtocolError posts it to
	// the client.
	Bind(b *Bind) (Implementation, error)
}

// BindFunc adapts a function to the GlobalImpl interface.
type BindFunc func(b *Bind) (Implementation, error)

func (f BindFunc) Bind(b *Bind) (Implementation, error) {
	return f(b)
}

// Global is an interface advertised to clients through wl_registry.
type Global struct {
	display *Display
	name    uint32
	iface   *wire.Interface
	version uint32
	impl    GlobalImpl
	binds   []*Bind
	removed bool
	data    any
}

// NewGlobal creates a global and advertises it to every client that
// can see it.
func NewGlobal(display *Display, iface *wire.Interface, version uint32, impl GlobalImpl) *Global {
	if (version == 0) || (version > iface.Version) {
		panic(fmt.Errorf("global %v: unsupported version %v", iface.Name, version))
	}

	g := Global{
		display: display,
		name:    display.nextName,
		iface:   iface,
		version: version,
		impl:    impl,
	}
	display.nextName++
	display.globals[g.name] = &g

	for client := range display.clients {
		for _, reg := range client.registries {
			g.advertise(reg)
		}
	}

	return &g
}

func (g *Global) advertise(registry *Resource) {
	if !g.display.visible(registry.client, g) {
		return
	}
	registry.Send(wayland.RegistryEventGlobal, g.name, g.iface.Name, g.version)
}

func (g *Global) String() string {
	return fmt.Sprintf("%v(%v)", g.iface.Name, g.name)
}

// Display returns the display that the global belongs to.
func (g *Global) Display() *Display {
	return g.display
}

// Name is the numeric name that the global is advertised under.
func (g *Global) Name() uint32 {
	return g.name
}

func (g *Global) Interface() *wire.Interface {
	return g.iface
}

// Version is the highest version of the interface the global
// supports.
func (g *Global) Version() uint32 {
	return g.version
}

// Alive reports whether the global has not been destroyed.
func (g *Global) Alive() bool {
	return (g != nil) && !g.removed
}

func (g *Global) Data() any {
	return g.data
}

func (g *Global) SetData(data any) {
	g.data = data
}

// Binds returns every live binding of the global.
func (g *Global) Binds() []*Bind {
	return slices.Clone(g.binds)
}

// Bind binds the global for client as if it had sent wl_registry.bind
// with the given version and new ID. It is exported for compositors
// that hand objects to clients without a registry, such as in tests.
func (g *Global) Bind(client *Client, version, id uint32) (*Bind, error) {
	if msg, ok := g.checkVersion(version); !ok {
		return nil, invalidObject("%v", msg)
	}

	r, err := NewResource(client, g.iface, min(version, g.version), id, nil)
	if err != nil {
		return nil, err
	}
	b := &Bind{global: g, resource: r}
	r.SetData(b)

	if g.removed {
		r.SetInert()
		return b, nil
	}

	g.binds = append(g.binds, b)
	r.OnDestroy(func(*Resource) {
		g.binds = slices.DeleteFunc(g.binds, func(b2 *Bind) bool { return b2 == b })
	})

	impl, err := g.impl.Bind(b)
	if err != nil {
		return nil, err
	}
	r.SetImplementation(impl)

	return b, nil
}

func (g *Global) checkVersion(version uint32) (string, bool) {
	if version == 0 {
		return fmt.Sprintf("invalid version for global %v (%v): 0 is not a valid version", g.iface.Name, g.name), false
	}
	if version > g.version {
		return fmt.Sprintf("invalid version for global %v (%v): have %v, wanted %v", g.iface.Name, g.name, g.version, version), false
	}
	return "", true
}

// Broadcast sends an event to every binding whose version supports
// it.
func (g *Global) Broadcast(op uint16, args ...any) error {
	ev, ok := g.iface.Event(op)
	if !ok {
		return wire.UnknownOpError{Interface: g.iface.Name, Type: "event", Op: op}
	}

	var errs []error
	for _, b := range g.Binds() {
		if !ev.Available(b.Version()) {
			continue
		}
		errs = append(errs, b.Send(op, args...))
	}
	return errors.Join(errs...)
}

// Destroy removes the global. Every registry is sent global_remove
// and every existing binding stops handling requests. Clients that
// bind the global afterwards, having not yet seen the removal, get an
// inert object instead of an error.
func (g *Global) Destroy() {
	if g.removed {
		return
	}
	g.removed = true

	for client := range g.display.clients {
		if !g.display.visible(client, g) {
			continue
		}
		for _, reg := range client.registries {
			reg.Send(wayland.RegistryEventGlobalRemove, g.name)
		}
	}

	for _, b := range g.binds {
		b.resource.SetInert()
	}
	g.binds = nil

	delay := g.display.GlobalRemoveDelay
	if (delay <= 0) || (len(g.display.clients) == 0) {
		g.forget()
		return
	}
	time.AfterFunc(delay, func() { g.display.Post(g.forget) })
}

func (g *Global) forget() {
	delete(g.display.globals, g.name)
	g.impl = nil
}

// Bind is one client's binding of a global.
type Bind struct {
	global   *Global
	resource *Resource
}

// BindFromResource returns the binding that r was created for.
func BindFromResource(r *Resource) (*Bind, bool) {
	b, ok := r.Data().(*Bind)
	return b, ok
}

func (b *Bind) Global() *Global {
	return b.global
}

func (b *Bind) Resource() *Resource {
	return b.resource
}

func (b *Bind) Client() *Client {
	return b.resource.client
}

// Version is the version negotiated when the global was bound.
func (b *Bind) Version() uint32 {
	return b.resource.version
}

// Alive reports whether both the binding's resource and its global
// are alive.
func (b *Bind) Alive() bool {
	return b.resource.Alive() && b.global.Alive()
}

func (b *Bind) Send(op uint16, args ...any) error {
	return b.resource.Send(op, args...)
}

func (b *Bind) String() string {
	return b.resource.String()
}

func (display *Display) newRegistry(client *Client, id uint32) error {
	reg, err := NewResource(client, wayland.Registry, 1, id, nil)
	if err != nil {
		return err
	}
	reg.SetImplementation(ImplementationFunc(display.handleRegistry))

	client.registries = append(client.registries, reg)
	reg.OnDestroy(func(*Resource) {
		client.registries = slices.DeleteFunc(client.registries, func(r *Resource) bool { return r == reg })
	})

	for _, g := range display.Globals() {
		g.advertise(reg)
	}
	return nil
}

func (display *Display) handleRegistry(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.RegistryBind:
		name := msg.ReadUint()
		iface := msg.ReadString()
		version := msg.ReadUint()
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		g, ok := display.globals[name]
		if !ok || !display.visible(r.client, g) {
			return r.Errorf(wayland.DisplayErrorInvalidObject, "invalid global %v (%v)", iface, name)
		}
		if iface != g.iface.Name {
			return r.Errorf(wayland.DisplayErrorInvalidObject, "invalid interface for global %v: have %v, wanted %v", name, iface, g.iface.Name)
		}

		if msg, ok := g.checkVersion(version); !ok {
			return r.Errorf(wayland.DisplayErrorInvalidObject, "%v", msg)
		}

		_, err := g.Bind(r.client, version, id)
		return err

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}
