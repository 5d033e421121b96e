package wl

import (
	"errors"
	"fmt"

	"deedles.dev/wlkit/internal/debug"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

const (
	displayID = 1

	maxClientID = 0xfeffffff
	minServerID = 0xff000000
	maxServerID = 0xffffffff
)

// Implementation handles the requests sent to a Resource. The opcode
// has already been checked against the resource's interface and
// version by the time Request is called. Handlers read their
// arguments from msg and should return a *ProtocolError for requests
// that violate the protocol. Any other error is reported to the
// client as an implementation error.
type Implementation interface {
	Request(r *Resource, op uint16, msg *wire.MessageBuffer) error
}

// ImplementationFunc adapts a function to the Implementation
// interface.
type ImplementationFunc func(r *Resource, op uint16, msg *wire.MessageBuffer) error

func (f ImplementationFunc) Request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	return f(r, op, msg)
}

type resourceState int

const (
	resourceLive resourceState = iota
	resourceDying
	resourceDead
)

// Resource is one protocol object that belongs to a client. Resources
// may be held after they have been destroyed. Doing so is safe, and
// sending events through a destroyed resource does nothing.
type Resource struct {
	client  *Client
	iface   *wire.Interface
	version uint32
	id      uint32
	impl    Implementation
	data    any
	state   resourceState
	inert   bool

	onDestroy Signal[*Resource]
}

// NewResource creates a resource for client with an ID chosen by the
// client. id must be a free ID in the client's range. Errors are
// returned as *ProtocolErrors that can be returned directly from a
// request handler.
func NewResource(client *Client, iface *wire.Interface, version, id uint32, impl Implementation) (*Resource, error) {
	if client.destroyed {
		return nil, ErrClientDestroyed
	}
	if (id == 0) || (id > maxClientID) {
		return nil, invalidObject("invalid new id %v", id)
	}

	r := newResource(client, iface, version, id, impl)
	if !client.objects.Add(id, r) {
		return nil, invalidObject("invalid new id %v", id)
	}
	return r, nil
}

// NewServerResource creates a resource for client with an ID
// allocated from the server's range, for objects that the server
// introduces itself.
func NewServerResource(client *Client, iface *wire.Interface, version uint32, impl Implementation) (*Resource, error) {
	if client.destroyed {
		return nil, ErrClientDestroyed
	}

	r := newResource(client, iface, version, 0, impl)
	id, ok := client.objects.Alloc(r)
	if !ok {
		return nil, displayError(wayland.DisplayErrorNoMemory, "no memory")
	}
	r.id = id
	return r, nil
}

func newResource(client *Client, iface *wire.Interface, version, id uint32, impl Implementation) *Resource {
	return &Resource{
		client:  client,
		iface:   iface,
		version: version,
		id:      id,
		impl:    impl,
	}
}

// ID returns the object ID of the resource. It remains available
// after the resource is destroyed.
func (r *Resource) ID() uint32 {
	return r.id
}

func (r *Resource) Client() *Client {
	return r.client
}

func (r *Resource) Interface() *wire.Interface {
	return r.iface
}

func (r *Resource) Version() uint32 {
	return r.version
}

func (r *Resource) String() string {
	return fmt.Sprintf("%v@%v", r.iface.Name, r.id)
}

// Alive reports whether the resource has neither been destroyed nor
// started being destroyed.
func (r *Resource) Alive() bool {
	return (r != nil) && (r.state == resourceLive)
}

// Data returns the value set with SetData.
func (r *Resource) Data() any {
	return r.data
}

// SetData associates arbitrary data with the resource. It is
// typically the object that the resource is a handle to.
func (r *Resource) SetData(data any) {
	r.data = data
}

// SetImplementation replaces the resource's request handler.
func (r *Resource) SetImplementation(impl Implementation) {
	r.impl = impl
}

// Inert reports whether the resource ignores requests.
func (r *Resource) Inert() bool {
	return r.inert
}

// SetInert makes the resource ignore any further requests. Objects
// created by those requests are created inert as well, and
// destructors still destroy the resource.
func (r *Resource) SetInert() {
	r.inert = true
}

// OnDestroy registers f to be called when the resource is destroyed.
// f is called before the resource's ID is released, so the resource
// may still be inspected and sent events from f.
func (r *Resource) OnDestroy(f func(*Resource)) *Listener[*Resource] {
	return r.onDestroy.Add(f)
}

// Errorf returns a protocol error on the resource with the given
// code.
func (r *Resource) Errorf(code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		ObjectID:  r.id,
		Interface: r.iface.Name,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
	}
}

// PostError sends a protocol error on the resource to its client,
// disconnecting it.
func (r *Resource) PostError(code uint32, format string, args ...any) {
	r.client.PostError(r.Errorf(code, format, args...))
}

// Send sends the event with the given opcode. Sending through a
// destroyed resource or to a destroyed client does nothing and
// returns nil. Sending an event that the resource's version predates
// is an error, as is sending arguments that don't match the event's
// signature.
func (r *Resource) Send(op uint16, args ...any) error {
	if (r.state == resourceDead) || r.client.destroyed {
		return nil
	}

	ev, ok := r.iface.Event(op)
	if !ok {
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "event", Op: op}
	}
	if !ev.Available(r.version) {
		return wire.VersionError{Interface: r.iface.Name, Message: ev.Name, Since: ev.Since, Version: r.version}
	}

	msg := wire.NewMessage(r, op)
	msg.WriteArgs(ev, args...)
	if err := msg.Err(); err != nil {
		msg.Close()
		return err
	}
	r.client.enqueue(msg)

	if ev.Destructor {
		r.Destroy()
	}
	return nil
}

// Destroy destroys the resource. Destroy listeners are called first,
// then the ID is released and, for IDs allocated by the client,
// wl_display.delete_id is sent. It is safe to call more than once.
func (r *Resource) Destroy() {
	if r.state != resourceLive {
		return
	}
	r.state = resourceDying

	r.onDestroy.emitFinal(r)

	r.client.objects.Delete(r.id)
	if (r.id <= maxClientID) && (r.id != displayID) && !r.client.destroyed {
		r.client.displayRes.Send(wayland.DisplayEventDeleteID, r.id)
	}

	r.state = resourceDead
}

func (r *Resource) dispatch(msg *wire.MessageBuffer) {
	req, ok := r.iface.Request(msg.Op())
	if !ok {
		r.client.PostError(invalidMethod("invalid method %v, object %v", msg.Op(), r))
		return
	}
	if !req.Available(r.version) {
		msg.Discard(req)
		r.client.PostError(invalidMethod("invalid method %v (since %v < %v), object %v", msg.Op(), r.version, req.Since, r))
		return
	}

	if err := msg.Verify(req); err != nil {
		msg.Discard(req)
		r.client.PostError(nullArg(r, req, err))
		return
	}

	if r.inert || (r.impl == nil) {
		r.drain(req, msg)
		return
	}

	err := r.impl.Request(r, msg.Op(), msg)
	msg.CloseUnclaimed(req)
	if debug.Enabled() {
		debug.Printf("%v", msg.Debug(r, req.Name))
	}

	if merr := msg.Err(); merr != nil {
		r.client.PostError(invalidMethod("invalid arguments for %v.%v: %v", r, req.Name, merr))
		return
	}
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) {
			r.client.PostError(perr)
			return
		}
		r.client.PostImplementationError("%v.%v: %v", r, req.Name, err)
		return
	}

	if req.Destructor {
		r.Destroy()
	}
}

// drain handles a request on a resource that has no one to handle it.
// Any new objects are created inert so that the client's ID
// allocation stays in sync.
func (r *Resource) drain(req wire.Message, msg *wire.MessageBuffer) {
	args := msg.ReadArgs(req)
	if debug.Enabled() {
		debug.Printf("%v (inert)", msg.Debug(r, req.Name))
	}
	if err := msg.Err(); err != nil {
		closeFiles(args)
		r.client.PostError(invalidMethod("invalid arguments for %v.%v: %v", r, req.Name, err))
		return
	}

	for i, arg := range req.Args() {
		if (arg.Type != wire.ArgNewID) || (req.Creates == nil) {
			continue
		}
		id := uint32(args[i].(wire.ObjectID))
		child, err := NewResource(r.client, req.Creates, r.version, id, nil)
		if err != nil {
			closeFiles(args)
			r.client.postErr(err)
			return
		}
		child.SetInert()
	}
	closeFiles(args)

	if req.Destructor {
		r.Destroy()
	}
}

func nullArg(r *Resource, req wire.Message, err error) *ProtocolError {
	var nerr wire.NullArgError
	if errors.As(err, &nerr) && (nerr.Type == wire.ArgObject) {
		return invalidObject("invalid arguments for %v.%v: %v", r, req.Name, err)
	}
	return invalidMethod("invalid arguments for %v.%v: %v", r, req.Name, err)
}
