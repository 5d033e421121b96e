package wl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"deedles.dev/wlkit/internal/debug"
	"deedles.dev/wlkit/internal/objstore"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"golang.org/x/sys/unix"
)

// Client is one connection to the display. All of its methods must be
// called from the display's dispatch goroutine.
type Client struct {
	display    *Display
	conn       *wire.Conn
	objects    *objstore.Store[*Resource]
	displayRes *Resource
	registries []*Resource
	out        []*wire.MessageBuilder
	err        *ProtocolError
	destroyed  bool
	done       chan struct{}
	data       any

	onDestroy Signal[*Client]
}

func newClient(display *Display, conn *wire.Conn) *Client {
	client := Client{
		display: display,
		conn:    conn,
		objects: objstore.New[*Resource](minServerID, maxServerID),
		done:    make(chan struct{}),
	}

	res, err := NewResource(&client, wayland.Display, 1, displayID, ImplementationFunc(client.handleDisplay))
	if err != nil {
		panic(fmt.Errorf("create display resource: %w", err))
	}
	client.displayRes = res

	return &client
}

func (client *Client) listen() {
	for {
		msg, err := wire.ReadMessage(client.conn)
		if err != nil {
			client.display.post(client.done, func() error {
				client.readError(err)
				return nil
			})
			return
		}

		ok := client.display.post(client.done, func() error {
			client.dispatch(msg)
			return nil
		})
		if !ok {
			return
		}
	}
}

func (client *Client) readError(err error) {
	if client.destroyed {
		return
	}

	if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		client.display.Logger.Warn("read from client failed", "client", client, "err", err)
	}
	client.Destroy()
}

func (client *Client) dispatch(msg *wire.MessageBuffer) {
	if client.destroyed || (client.err != nil) {
		return
	}

	r, ok := client.objects.Get(msg.Sender())
	if !ok {
		client.PostError(invalidObject("invalid object %v", msg.Sender()))
		return
	}
	r.dispatch(msg)
}

func (client *Client) String() string {
	return fmt.Sprintf("client(%p)", client)
}

// Display returns the display that the client is connected to.
func (client *Client) Display() *Display {
	return client.display
}

// Resource returns the client's resource with the given ID.
func (client *Client) Resource(id uint32) (*Resource, bool) {
	return client.objects.Get(id)
}

// ResolveObject looks up the resource referenced by an object
// argument of a request. A zero ID yields a nil resource and no error.
// If iface is not nil, the resource must implement it. Errors are
// *ProtocolErrors suitable for returning from a request handler.
func (client *Client) ResolveObject(id wire.ObjectID, iface *wire.Interface) (*Resource, error) {
	if id == 0 {
		return nil, nil
	}

	r, ok := client.objects.Get(uint32(id))
	if !ok {
		return nil, invalidObject("invalid object %v", id)
	}
	if (iface != nil) && (r.iface.Name != iface.Name) {
		return nil, invalidObject("object %v is %v, expected %v", id, r.iface.Name, iface.Name)
	}
	return r, nil
}

// Data returns the value set with SetData.
func (client *Client) Data() any {
	return client.data
}

func (client *Client) SetData(data any) {
	client.data = data
}

// Err returns the protocol error posted to the client, if any.
func (client *Client) Err() *ProtocolError {
	return client.err
}

// Alive reports whether the client is still connected.
func (client *Client) Alive() bool {
	return !client.destroyed
}

// OnDestroy registers f to be called when the client is destroyed,
// before any of its resources are.
func (client *Client) OnDestroy(f func(*Client)) *Listener[*Client] {
	return client.onDestroy.Add(f)
}

// Credentials returns the process, user and group IDs of the peer.
func (client *Client) Credentials() (pid int32, uid, gid uint32, err error) {
	sc, err := client.conn.UnixConn().SyscallConn()
	if err != nil {
		return 0, 0, 0, err
	}

	var cred *unix.Ucred
	cerr := sc.Control(func(fd uintptr) {
		cred, err = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if cerr != nil {
		return 0, 0, 0, cerr
	}
	if err != nil {
		return 0, 0, 0, fmt.Errorf("get peer credentials: %w", err)
	}
	return cred.Pid, cred.Uid, cred.Gid, nil
}

// PostError sends err to the client with wl_display.error. The client
// is destroyed at the end of the current dispatch. Only the first
// error posted to a client is sent.
func (client *Client) PostError(err *ProtocolError) {
	if client.destroyed || (client.err != nil) {
		return
	}
	client.err = err

	client.display.Logger.Warn("protocol error", "client", client, "err", err)
	client.displayRes.Send(
		wayland.DisplayEventError,
		wire.ObjectID(err.ObjectID),
		err.Code,
		err.Message,
	)
}

// PostNoMemory posts a no_memory error to the client.
func (client *Client) PostNoMemory() {
	client.PostError(displayError(wayland.DisplayErrorNoMemory, "no memory"))
}

// PostImplementationError posts an implementation error to the
// client. These indicate a bug in the server rather than in the
// client.
func (client *Client) PostImplementationError(format string, args ...any) {
	err := displayError(wayland.DisplayErrorImplementation, format, args...)
	client.display.Logger.Error("implementation error", "client", client, "err", err.Message)
	client.PostError(err)
}

// postErr posts err as a protocol error if it is one and as an
// implementation error otherwise.
func (client *Client) postErr(err error) {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		client.PostError(perr)
		return
	}
	client.PostImplementationError("%v", err)
}

func (client *Client) enqueue(msg *wire.MessageBuilder) {
	if client.destroyed {
		msg.Close()
		return
	}

	debug.Printf(" -> %v", msg)
	client.out = append(client.out, msg)
}

// Flush sends every queued event to the client. A failed write
// destroys the client.
func (client *Client) Flush() error {
	err := client.flush()
	if err != nil {
		client.Destroy()
	}
	return err
}

func (client *Client) flush() error {
	out := client.out
	client.out = nil

	for i, msg := range out {
		err := msg.Build(client.conn)
		if err != nil {
			for _, msg := range out[i+1:] {
				msg.Close()
			}
			return fmt.Errorf("flush %v: %w", client, err)
		}
	}
	return nil
}

// Destroy disconnects the client. Queued events are flushed, destroy
// listeners are called and then every resource belonging to the
// client is destroyed, newest first. It is safe to call more than
// once.
func (client *Client) Destroy() {
	if client.destroyed {
		return
	}

	if err := client.flush(); err != nil {
		client.display.Logger.Debug("final flush failed", "client", client, "err", err)
	}
	client.destroyed = true
	close(client.done)

	client.onDestroy.emitFinal(client)

	for _, r := range client.objects.All() {
		r.Destroy()
	}

	client.conn.Close()
	client.display.removeClient(client)
}

func (client *Client) handleDisplay(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.DisplaySync:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		cb, err := NewResource(client, wayland.Callback, 1, uint32(id), nil)
		if err != nil {
			return err
		}
		return cb.Send(wayland.CallbackEventDone, client.display.NextSerial())

	case wayland.DisplayGetRegistry:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		return client.display.newRegistry(client, uint32(id))

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}

func closeFiles(args []any) {
	for _, arg := range args {
		if f, ok := arg.(*os.File); ok && (f != nil) {
			f.Close()
		}
	}
}
