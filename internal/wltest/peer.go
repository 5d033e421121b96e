package wltest

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/require"
)

// Timeout bounds every read a Peer makes.
const Timeout = 5 * time.Second

// Peer is a client that speaks the wire protocol by hand. Object IDs
// are chosen by the test.
type Peer struct {
	t    testing.TB
	Conn *wire.Conn
}

// NewPeer returns a Peer using c.
func NewPeer(t testing.TB, c *wire.Conn) *Peer {
	return &Peer{t: t, Conn: c}
}

// Send sends a request from the object id, which implements iface.
func (p *Peer) Send(id uint32, iface *wire.Interface, op uint16, args ...any) {
	p.t.Helper()

	req, ok := iface.Request(op)
	require.True(p.t, ok, "%v has no request %v", iface.Name, op)

	msg := wire.NewMessage(wire.ObjectID(id), op)
	msg.WriteArgs(req, args...)
	require.NoError(p.t, msg.Build(p.Conn))
}

// Next returns the next event.
func (p *Peer) Next() *wire.MessageBuffer {
	p.t.Helper()

	require.NoError(p.t, p.Conn.UnixConn().SetReadDeadline(time.Now().Add(Timeout)))
	msg, err := wire.ReadMessage(p.Conn)
	require.NoError(p.t, err)
	return msg
}

// Until reads events, discarding them, until it gets the event op
// from the object sender, which it returns. It fails the test if a
// wl_display.error arrives first, unless that is what was asked for.
func (p *Peer) Until(sender uint32, op uint16) *wire.MessageBuffer {
	p.t.Helper()

	for {
		msg := p.Next()
		if (msg.Sender() == sender) && (msg.Op() == op) {
			return msg
		}
		if (msg.Sender() == 1) && (msg.Op() == wayland.DisplayEventError) {
			id, code, text := msg.ReadObject(), msg.ReadUint(), msg.ReadString()
			require.FailNow(p.t, "unexpected protocol error", "object %v, code %v: %v", id, code, text)
		}
	}
}

// Error waits for wl_display.error and returns the object ID and
// code it carries.
func (p *Peer) Error() (uint32, uint32) {
	p.t.Helper()

	msg := p.Until(1, wayland.DisplayEventError)
	id, code := msg.ReadObject(), msg.ReadUint()
	msg.ReadString()
	require.NoError(p.t, msg.Err())
	return uint32(id), code
}

// Sync sends wl_display.sync with a callback of the given ID and
// returns every event received before the callback fired.
func (p *Peer) Sync(callback uint32) []*wire.MessageBuffer {
	p.t.Helper()

	p.Send(1, wayland.Display, wayland.DisplaySync, wire.ObjectID(callback))

	var msgs []*wire.MessageBuffer
	for {
		msg := p.Next()
		if (msg.Sender() == callback) && (msg.Op() == wayland.CallbackEventDone) {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

// Global is a global as advertised to a Peer.
type Global struct {
	Name    uint32
	Version uint32
}

// Registry creates a registry with the given ID and returns the
// globals it advertises, keyed by interface name. id+1 is used for a
// callback.
func (p *Peer) Registry(id uint32) map[string]Global {
	p.t.Helper()

	p.Send(1, wayland.Display, wayland.DisplayGetRegistry, wire.ObjectID(id))

	globals := make(map[string]Global)
	for _, msg := range p.Sync(id + 1) {
		if (msg.Sender() != id) || (msg.Op() != wayland.RegistryEventGlobal) {
			continue
		}
		name, iface, version := msg.ReadUint(), msg.ReadString(), msg.ReadUint()
		require.NoError(p.t, msg.Err())
		globals[iface] = Global{Name: name, Version: version}
	}
	return globals
}

// Bind binds the global advertised under iface.Name in globals with
// the given object ID and version.
func (p *Peer) Bind(registry uint32, globals map[string]Global, iface *wire.Interface, version, id uint32) {
	p.t.Helper()

	g, ok := globals[iface.Name]
	require.True(p.t, ok, "global %v not advertised", iface.Name)
	p.Send(registry, wayland.Registry, wayland.RegistryBind, g.Name, iface.Name, version, wire.ObjectID(id))
}

// Runner is a server that dispatches until its context is canceled.
type Runner interface {
	Run(ctx context.Context) error
	Close() error
}

// Run runs r in the background until the test ends.
func Run(t testing.TB, r Runner) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		r.Close()
		select {
		case err := <-done:
			if (err != nil) && !errors.Is(err, context.Canceled) {
				t.Errorf("run: %v", err)
			}
		case <-time.After(Timeout):
			t.Error("server did not stop")
		}
	})
}

// Connector accepts connections from clients.
type Connector interface {
	Connect(c *net.UnixConn)
}

// Connect connects a new Peer to c.
func Connect(t testing.TB, c Connector) *Peer {
	t.Helper()

	server, client := UnixPair(t)
	c.Connect(server)
	return NewPeer(t, wire.NewConn(client))
}

// Dial connects to c and returns the client's end of the connection.
func Dial(t testing.TB, c Connector) *wire.Conn {
	t.Helper()

	server, client := UnixPair(t)
	c.Connect(server)
	return wire.NewConn(client)
}

// RoundTripper is a client that can wait for the server to catch up.
type RoundTripper interface {
	RoundTrip(ctx context.Context) error
}

// RoundTrip calls c.RoundTrip with a timeout and fails the test if it
// returns an error.
func RoundTrip(t testing.TB, c RoundTripper) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	require.NoError(t, c.RoundTrip(ctx))
}
