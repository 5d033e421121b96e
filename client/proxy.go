package wl

import (
	"fmt"

	"deedles.dev/wlkit/wire"
)

// EventHandler handles the events sent to a Proxy. The opcode has
// already been checked against the proxy's interface.
type EventHandler interface {
	Event(p *Proxy, op uint16, msg *wire.MessageBuffer) error
}

// EventFunc adapts a function to the EventHandler interface.
type EventFunc func(p *Proxy, op uint16, msg *wire.MessageBuffer) error

func (f EventFunc) Event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	return f(p, op, msg)
}

type proxyState int

const (
	proxyLive proxyState = iota
	proxyZombie
	proxyDeleted
)

// Proxy is the client's handle to a protocol object. A nil *Proxy is
// valid as a null object argument, and destroying one does nothing.
type Proxy struct {
	display *Display
	iface   *wire.Interface
	version uint32
	id      uint32
	handler EventHandler
	state   proxyState
	data    any
}

// NewProxy creates a proxy with a newly allocated ID. Nothing is sent
// to the server. The proxy should be passed as the new_id argument of
// the request that creates it.
func NewProxy(display *Display, iface *wire.Interface, version uint32, handler EventHandler) *Proxy {
	p := Proxy{
		display: display,
		iface:   iface,
		version: version,
		handler: handler,
	}
	id, ok := display.objects.Alloc(&p)
	if !ok {
		panic("wl: client object IDs exhausted")
	}
	p.id = id
	return &p
}

// NewServerProxy creates a proxy for an object that the server
// created, such as one announced by an event with a new_id argument.
func NewServerProxy(display *Display, id uint32, iface *wire.Interface, version uint32, handler EventHandler) (*Proxy, error) {
	p := Proxy{
		display: display,
		iface:   iface,
		version: version,
		id:      id,
		handler: handler,
	}
	if old, ok := display.servers.Get(id); ok && (old.state != proxyLive) {
		old.delete()
	}
	if (id < minServerID) || !display.servers.Add(id, &p) {
		return nil, fmt.Errorf("invalid server object ID %v", id)
	}
	return &p, nil
}

// ID returns the proxy's object ID, or zero for a nil proxy.
func (p *Proxy) ID() uint32 {
	if p == nil {
		return 0
	}
	return p.id
}

func (p *Proxy) Display() *Display {
	return p.display
}

func (p *Proxy) Interface() *wire.Interface {
	return p.iface
}

func (p *Proxy) Version() uint32 {
	return p.version
}

func (p *Proxy) String() string {
	if p == nil {
		return "nil"
	}
	return fmt.Sprintf("%v@%v", p.iface.Name, p.id)
}

// Alive reports whether the proxy can still be used to make requests.
func (p *Proxy) Alive() bool {
	return (p != nil) && (p.state == proxyLive)
}

// Data returns the value set with SetData. The wrappers in this
// package set it to themselves.
func (p *Proxy) Data() any {
	return p.data
}

func (p *Proxy) SetData(data any) {
	p.data = data
}

// SetHandler replaces the proxy's event handler.
func (p *Proxy) SetHandler(handler EventHandler) {
	p.handler = handler
}

// Request queues a request to be sent with the next Flush. Requests
// that the proxy's version predates are rejected with a
// wire.VersionError. After a destructor request, the proxy is
// destroyed.
func (p *Proxy) Request(op uint16, args ...any) error {
	if p == nil {
		return ErrNilProxy
	}
	if p.state != proxyLive {
		return ErrProxyDestroyed
	}

	req, ok := p.iface.Request(op)
	if !ok {
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "request", Op: op}
	}
	if !req.Available(p.version) {
		return wire.VersionError{Interface: p.iface.Name, Message: req.Name, Since: req.Since, Version: p.version}
	}

	msg := wire.NewMessage(p, op)
	msg.WriteArgs(req, args...)
	if err := msg.Err(); err != nil {
		msg.Close()
		return err
	}
	p.display.enqueue(msg)

	if req.Destructor {
		p.zombify()
	}
	return nil
}

// Destroy sends the proxy's destructor request, if its interface has
// one at the proxy's version, and marks it destroyed. Events that
// arrive for it afterwards are discarded. Calling Destroy more than
// once, or on a nil proxy, does nothing.
func (p *Proxy) Destroy() error {
	if !p.Alive() {
		return nil
	}

	for op, req := range p.iface.Requests {
		if req.Destructor && (len(req.Args()) == 0) && req.Available(p.version) {
			return p.Request(uint16(op))
		}
	}

	p.zombify()
	return nil
}

// Forget removes a proxy that the server never learned about, such
// as one whose creating request failed, without sending anything.
func (p *Proxy) Forget() {
	if p != nil {
		p.delete()
	}
}

// zombify marks the proxy as destroyed on the client's side. It is
// kept around to discard late events until the server confirms with
// delete_id or, for server IDs, reuses the ID.
func (p *Proxy) zombify() {
	p.state = proxyZombie
}

func (p *Proxy) delete() {
	if p.state == proxyDeleted {
		return
	}
	p.state = proxyDeleted

	if p.id >= minServerID {
		p.display.servers.Delete(p.id)
		return
	}
	p.display.objects.Delete(p.id)
}

func (p *Proxy) dispatch(msg *wire.MessageBuffer) error {
	ev, ok := p.iface.Event(msg.Op())
	if !ok {
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: msg.Op()}
	}

	if (p.state != proxyLive) || (p.handler == nil) {
		return p.drain(ev, msg)
	}

	err := p.handler.Event(p, msg.Op(), msg)
	msg.CloseUnclaimed(ev)
	p.display.trace(msg, p, ev.Name)
	if merr := msg.Err(); merr != nil {
		return fmt.Errorf("%v.%v: %w", p, ev.Name, merr)
	}

	if ev.Destructor {
		p.zombify()
	}
	return err
}

// drain reads and discards an event that nothing will handle. Objects
// that the event creates are registered as destroyed so that their
// events are discarded as well.
func (p *Proxy) drain(ev wire.Message, msg *wire.MessageBuffer) error {
	args := msg.ReadArgs(ev)
	p.display.trace(msg, p, ev.Name+" (discarded)")
	defer closeFiles(args)
	if err := msg.Err(); err != nil {
		return fmt.Errorf("%v.%v: %w", p, ev.Name, err)
	}

	for i, arg := range ev.Args() {
		if (arg.Type != wire.ArgNewID) || (ev.Creates == nil) {
			continue
		}
		child, err := NewServerProxy(p.display, uint32(args[i].(wire.ObjectID)), ev.Creates, p.version, nil)
		if err != nil {
			return err
		}
		child.zombify()
	}

	if ev.Destructor && (p.state == proxyLive) {
		p.zombify()
	}
	return nil
}
