// Package wl implements the server side of the Wayland protocol.
//
// A Display owns a single dispatch goroutine, the one that calls Run
// or Dispatch. Requests from every client, new connections, and work
// scheduled with Post and Call are all handled there, so the objects
// in this package are not safe for use from any other goroutine.
package wl

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"slices"
	"sync"
	"time"

	"deedles.dev/wlkit/internal/cq"
	"deedles.dev/wlkit/internal/debug"
	"deedles.dev/wlkit/internal/set"
	"deedles.dev/wlkit/wire"
	"github.com/charmbracelet/log"
)

// BufferQuerier reports the geometry of buffers that are neither shm
// nor dmabuf backed, such as those created through EGL.
type BufferQuerier interface {
	QueryBuffer(r *Resource) (size image.Point, alpha bool, ok bool)
}

// Display is a Wayland server.
type Display struct {
	// Logger receives connection and error logs. It defaults to the
	// package-wide logger, which traces every message if
	// $WAYLAND_DEBUG is set.
	Logger *log.Logger

	// GlobalRemoveDelay is how long a destroyed global keeps accepting
	// binds from clients that have not yet seen its removal. Those
	// binds create inert objects. Afterwards, binding its name is an
	// error. It defaults to five seconds.
	GlobalRemoveDelay time.Duration

	done  chan struct{}
	close sync.Once
	queue *cq.Queue[func() error]

	lismu     sync.Mutex
	listeners []*net.UnixListener

	clients  set.Set[*Client]
	globals  map[uint32]*Global
	nextName uint32
	serial   uint32
	buffers  BufferManager
	filter   func(*Client, *Global) bool
	querier  BufferQuerier

	clientCreated Signal[*Client]
}

// NewDisplay returns a display with no connections and no globals.
func NewDisplay() *Display {
	return &Display{
		Logger:            debug.Logger,
		GlobalRemoveDelay: 5 * time.Second,
		done:              make(chan struct{}),
		queue:             cq.New[func() error](),
		clients:           make(set.Set[*Client]),
		globals:           make(map[uint32]*Global),
		nextName:          1,
		buffers:           BufferManager{buffers: make(map[*Resource]*Buffer)},
	}
}

// ListenAndServe listens on a new socket in $XDG_RUNTIME_DIR and
// accepts connections on it in the background. It returns the path of
// the socket.
func (display *Display) ListenAndServe() (string, error) {
	lis, err := wire.Listen("")
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	go display.Serve(lis)
	return lis.Addr().String(), nil
}

// Serve accepts connections from lis until it or the display is
// closed. Accepted connections are added on the dispatch goroutine.
func (display *Display) Serve(lis *net.UnixListener) error {
	display.lismu.Lock()
	display.listeners = append(display.listeners, lis)
	display.lismu.Unlock()

	for {
		c, err := lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		display.Connect(c)
	}
}

// Connect adds c as a client. Unlike AddClient, it may be called from
// any goroutine.
func (display *Display) Connect(c *net.UnixConn) {
	ok := display.post(nil, func() error {
		display.AddClient(c)
		return nil
	})
	if !ok {
		c.Close()
	}
}

// AddClient adds c as a client and returns it. It must be called from
// the dispatch goroutine.
func (display *Display) AddClient(c *net.UnixConn) *Client {
	client := newClient(display, wire.NewConn(c))
	display.clients.Add(client)
	display.Logger.Info("client connected", "client", client)

	display.clientCreated.Emit(client)
	go client.listen()
	return client
}

func (display *Display) removeClient(client *Client) {
	if !display.clients.Delete(client) {
		return
	}
	display.Logger.Info("client disconnected", "client", client)
}

// OnClientCreated registers f to be called whenever a client
// connects.
func (display *Display) OnClientCreated(f func(*Client)) *Listener[*Client] {
	return display.clientCreated.Add(f)
}

// Clients returns the currently connected clients.
func (display *Display) Clients() []*Client {
	return display.clients.Slice()
}

// post adds f to the dispatch queue. It returns false if the display
// or cancel were closed first.
func (display *Display) post(cancel <-chan struct{}, f func() error) bool {
	select {
	case <-display.done:
		return false
	case <-cancel:
		return false
	case display.queue.Add() <- f:
		return true
	}
}

// Post schedules f to run on the dispatch goroutine. It is safe to
// call from any goroutine. It returns false if the display has been
// closed.
func (display *Display) Post(f func()) bool {
	return display.post(nil, func() error {
		f()
		return nil
	})
}

// Call runs f on the dispatch goroutine and waits for it to return.
func (display *Display) Call(ctx context.Context, f func() error) error {
	result := make(chan error, 1)
	ok := display.post(ctx.Done(), func() error {
		result <- f()
		return nil
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		return net.ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-display.done:
		return net.ErrClosed
	case err := <-result:
		return err
	}
}

// Dispatch waits for work to arrive, handles it and then flushes
// events to every client. Clients that were sent a protocol error are
// disconnected afterwards.
func (display *Display) Dispatch(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-display.done:
		return net.ErrClosed
	case queue := <-display.queue.Get():
		err := cq.Run(queue)
		display.FlushClients()
		return err
	}
}

// Flush handles any work that is already waiting without blocking.
func (display *Display) Flush() error {
	select {
	case queue := <-display.queue.Get():
		err := cq.Run(queue)
		display.FlushClients()
		return err
	default:
		display.FlushClients()
		return nil
	}
}

// FlushClients sends queued events to every client and disconnects
// clients that have been sent a protocol error.
func (display *Display) FlushClients() {
	for _, client := range display.Clients() {
		if client.Flush() != nil {
			continue
		}
		if client.err != nil {
			client.Destroy()
		}
	}
}

// Run dispatches until ctx is canceled or the display is closed.
func (display *Display) Run(ctx context.Context) error {
	for {
		err := display.Dispatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			display.Logger.Error("dispatch", "err", err)
		}
	}
}

// Close stops accepting connections and stops the dispatch queue.
// Clients are not destroyed, as Close may be called from any
// goroutine. Use DestroyClients from the dispatch goroutine first to
// disconnect them cleanly.
func (display *Display) Close() error {
	display.close.Do(func() { close(display.done) })
	display.queue.Stop()

	display.lismu.Lock()
	defer display.lismu.Unlock()

	var errs []error
	for _, lis := range display.listeners {
		errs = append(errs, lis.Close())
	}
	display.listeners = nil
	return errors.Join(errs...)
}

// DestroyClients disconnects every client.
func (display *Display) DestroyClients() {
	for _, client := range display.Clients() {
		client.Destroy()
	}
}

// NextSerial returns a new event serial.
func (display *Display) NextSerial() uint32 {
	display.serial++
	return display.serial
}

// Buffers returns the display's buffer manager.
func (display *Display) Buffers() *BufferManager {
	return &display.buffers
}

// Globals returns every global that has not been destroyed, ordered
// by name.
func (display *Display) Globals() []*Global {
	globals := make([]*Global, 0, len(display.globals))
	for _, g := range display.globals {
		if g.Alive() {
			globals = append(globals, g)
		}
	}
	slices.SortFunc(globals, func(g1, g2 *Global) int { return cmp.Compare(g1.name, g2.name) })
	return globals
}

// Global returns the global with the given name. Destroyed globals
// are still returned until GlobalRemoveDelay has passed.
func (display *Display) Global(name uint32) (*Global, bool) {
	g, ok := display.globals[name]
	return g, ok
}

// SetGlobalFilter sets a function that decides which globals a client
// may see and bind. A nil filter shows every global to every client.
func (display *Display) SetGlobalFilter(filter func(*Client, *Global) bool) {
	display.filter = filter
}

// SetBufferQuerier sets the fallback used to determine the geometry
// of buffers that are not shm or dmabuf backed.
func (display *Display) SetBufferQuerier(q BufferQuerier) {
	display.querier = q
}

func (display *Display) visible(client *Client, g *Global) bool {
	return (display.filter == nil) || display.filter(client, g)
}
