// Package wl implements the client side of the Wayland protocol.
//
// A Display reads from its connection on a background goroutine, but
// events are only handled, and requests only sent, when the program
// calls Dispatch, DispatchPending or RoundTrip. Everything other than
// Close must be called from a single goroutine.
package wl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"deedles.dev/wlkit/internal/cq"
	"deedles.dev/wlkit/internal/debug"
	"deedles.dev/wlkit/internal/objstore"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"github.com/charmbracelet/log"
)

const (
	maxClientID = 0xfeffffff
	minServerID = 0xff000000
	maxServerID = 0xffffffff
)

// Display is a connection to a Wayland server.
type Display struct {
	// Error, if set, is called when the server sends a fatal protocol
	// error.
	Error func(err *ProtocolError)

	// Logger receives connection problems that are not returned as
	// errors. It defaults to the package-wide logger.
	Logger *log.Logger

	proxy    *Proxy
	done     chan struct{}
	close    sync.Once
	conn     *wire.Conn
	objects  *objstore.Store[*Proxy]
	servers  *objstore.Store[*Proxy]
	queue    *cq.Queue[func() error]
	out      []*wire.MessageBuilder
	err      *ProtocolError
	readErr  error
	registry *Registry
}

// Dial connects to the server named by the environment.
func Dial() (*Display, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, err
	}
	return NewDisplay(c), nil
}

// DialSocket connects to the server listening on the named socket.
// Relative names are looked up in $XDG_RUNTIME_DIR.
func DialSocket(name string) (*Display, error) {
	c, err := wire.DialSocket(name)
	if err != nil {
		return nil, err
	}
	return NewDisplay(c), nil
}

// NewDisplay returns a display that communicates over c.
func NewDisplay(c *wire.Conn) *Display {
	display := Display{
		Logger:  debug.Logger,
		done:    make(chan struct{}),
		conn:    c,
		objects: objstore.New[*Proxy](1, maxClientID),
		servers: objstore.New[*Proxy](minServerID, maxServerID),
		queue:   cq.New[func() error](),
	}
	display.proxy = NewProxy(&display, wayland.Display, 1, EventFunc(display.event))
	display.proxy.SetData(&display)

	go display.listen()

	return &display
}

func (display *Display) listen() {
	for {
		msg, err := wire.ReadMessage(display.conn)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			select {
			case <-display.done:
			case display.queue.Add() <- func() error {
				display.readErr = fmt.Errorf("read message: %w", err)
				return display.readErr
			}:
			}
			return
		}

		select {
		case <-display.done:
			return
		case display.queue.Add() <- func() error { return display.dispatch(msg) }:
		}
	}
}

// Close closes the connection. Unsent requests are discarded.
func (display *Display) Close() error {
	display.close.Do(func() { close(display.done) })
	display.queue.Stop()

	for _, msg := range display.out {
		msg.Close()
	}
	display.out = nil

	return display.conn.Close()
}

// Err returns the protocol error sent by the server, if any.
func (display *Display) Err() *ProtocolError {
	return display.err
}

// Proxy returns the wl_display proxy.
func (display *Display) Proxy() *Proxy {
	return display.proxy
}

func (display *Display) lookup(id uint32) (*Proxy, bool) {
	if id >= minServerID {
		return display.servers.Get(id)
	}
	return display.objects.Get(id)
}

// Object returns the proxy with the given ID, if any.
func (display *Display) Object(id uint32) (*Proxy, bool) {
	p, ok := display.lookup(id)
	if !ok || (p.state != proxyLive) {
		return nil, false
	}
	return p, true
}

func (display *Display) dispatch(msg *wire.MessageBuffer) error {
	p, ok := display.lookup(msg.Sender())
	if !ok {
		display.Logger.Warn("event for unknown object", "id", msg.Sender(), "op", msg.Op())
		return wire.UnknownSenderIDError{Msg: msg}
	}
	return p.dispatch(msg)
}

func (display *Display) trace(msg *wire.MessageBuffer, p *Proxy, name string) {
	if !debug.Enabled() {
		return
	}
	debug.Printf("%v", msg.Debug(p, name))
}

func (display *Display) enqueue(msg *wire.MessageBuilder) {
	debug.Printf(" -> %v", msg)
	display.out = append(display.out, msg)
}

// Flush sends every queued request.
func (display *Display) Flush() error {
	out := display.out
	display.out = nil

	for i, msg := range out {
		err := msg.Build(display.conn)
		if err != nil {
			for _, msg := range out[i+1:] {
				msg.Close()
			}
			return fmt.Errorf("flush: %w", err)
		}
	}
	return nil
}

// fatal returns the error that made the display unusable, if any.
func (display *Display) fatal() error {
	if display.err != nil {
		return display.err
	}
	return display.readErr
}

func (display *Display) handle(queue []func() error) error {
	err := cq.Run(queue)
	if ferr := display.fatal(); ferr != nil {
		return ferr
	}
	if ferr := display.Flush(); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

// Dispatch sends queued requests, waits for at least one event and
// then handles every event that has arrived. Errors returned by event
// handlers are joined together. Once the server has sent a protocol
// error, Dispatch returns it.
func (display *Display) Dispatch(ctx context.Context) error {
	if err := display.fatal(); err != nil {
		return err
	}
	if err := display.Flush(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-display.done:
		return net.ErrClosed
	case queue := <-display.queue.Get():
		return display.handle(queue)
	}
}

// DispatchPending handles events that have already arrived without
// waiting for more.
func (display *Display) DispatchPending() error {
	if err := display.fatal(); err != nil {
		return err
	}

	select {
	case queue := <-display.queue.Get():
		return display.handle(queue)
	default:
		return display.Flush()
	}
}

// RoundTrip sends a sync request and dispatches until the server
// answers it, which guarantees that every earlier request has been
// handled. Handler errors are collected while waiting.
func (display *Display) RoundTrip(ctx context.Context) error {
	var done bool
	display.Sync(func(uint32) { done = true })

	var errs []error
	for !done {
		err := display.Dispatch(ctx)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if (display.fatal() != nil) || (ctx.Err() != nil) || errors.Is(err, net.ErrClosed) {
			break
		}
	}
	return errors.Join(errs...)
}

// Sync sends wl_display.sync. done is called with the callback's data
// once the server has handled every earlier request.
func (display *Display) Sync(done func(uint32)) *Callback {
	cb := newCallback(display, done)
	display.proxy.Request(wayland.DisplaySync, cb.proxy)
	return cb
}

// GetRegistry returns the display's registry, creating it the first
// time.
func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	display.registry = newRegistry(display)
	display.proxy.Request(wayland.DisplayGetRegistry, display.registry.proxy)
	return display.registry
}

func (display *Display) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.DisplayEventError:
		id := msg.ReadObject()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}

		perr := ProtocolError{ObjectID: uint32(id), Code: code, Message: message}
		if obj, ok := display.lookup(uint32(id)); ok {
			perr.Interface = obj.iface.Name
		}
		display.err = &perr
		if display.Error != nil {
			display.Error(&perr)
		}
		return nil

	case wayland.DisplayEventDeleteID:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		obj, ok := display.objects.Get(id)
		if !ok {
			return nil
		}
		obj.delete()
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}

func closeFiles(args []any) {
	for _, arg := range args {
		if f, ok := arg.(*os.File); ok && (f != nil) {
			f.Close()
		}
	}
}
