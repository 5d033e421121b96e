package shortcutsinhibit_test

import (
	"context"
	"testing"

	"deedles.dev/wlkit/internal/wltest"
	protoinhibit "deedles.dev/wlkit/proto/shortcutsinhibit"
	"deedles.dev/wlkit/proto/wayland"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/server/shortcutsinhibit"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup binds the compositor as 4, the seat as 5 and the manager as
// 6, then creates a surface as 7.
func setup(t *testing.T) (*wl.Display, *shortcutsinhibit.Manager, *wltest.Peer) {
	display := wl.NewDisplay()
	wl.NewCompositor(display)
	wl.NewSeat(display, "seat0", wayland.SeatCapabilityKeyboard)
	m := shortcutsinhibit.New(display)
	wltest.Run(t, display)

	peer := wltest.Connect(t, display)
	globals := peer.Registry(2)
	peer.Bind(2, globals, wayland.Compositor, 4, 4)
	peer.Bind(2, globals, wayland.Seat, 1, 5)
	peer.Bind(2, globals, protoinhibit.Manager, 1, 6)
	peer.Send(4, wayland.Compositor, wayland.CompositorCreateSurface, wire.ObjectID(7))
	return display, m, peer
}

func inhibitor(t *testing.T, display *wl.Display) *shortcutsinhibit.Inhibitor {
	t.Helper()

	var inhibitors []*shortcutsinhibit.Inhibitor
	err := display.Call(context.Background(), func() error {
		client := display.Clients()[0]
		r, ok := client.Resource(8)
		if !ok {
			return nil
		}
		inh, _ := r.Data().(*shortcutsinhibit.Inhibitor)
		inhibitors = append(inhibitors, inh)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, inhibitors, 1)
	return inhibitors[0]
}

func TestInhibit(t *testing.T) {
	display, m, peer := setup(t)

	var created *shortcutsinhibit.Inhibitor
	err := display.Call(context.Background(), func() error {
		m.OnInhibitor(func(inh *shortcutsinhibit.Inhibitor) { created = inh })
		return nil
	})
	require.NoError(t, err)

	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(8), wire.ObjectID(7), wire.ObjectID(5))
	peer.Sync(9)

	inh := inhibitor(t, display)
	err = display.Call(context.Background(), func() error {
		assert.Same(t, created, inh)
		assert.NotNil(t, inh.Surface())
		assert.NotNil(t, inh.Seat())

		found, ok := m.Inhibitor(inh.Surface(), inh.Seat())
		assert.True(t, ok)
		assert.Same(t, inh, found)

		inh.Activate()
		inh.Activate()
		return nil
	})
	require.NoError(t, err)

	msgs := peer.Sync(10)
	var active int
	for _, msg := range msgs {
		if (msg.Sender() == 8) && (msg.Op() == protoinhibit.InhibitorEventActive) {
			active++
		}
	}
	assert.Equal(t, 1, active)

	err = display.Call(context.Background(), func() error {
		inh.Deactivate()
		inh.Deactivate()
		assert.False(t, inh.Active())
		return nil
	})
	require.NoError(t, err)
	peer.Until(8, protoinhibit.InhibitorEventInactive)
}

func TestAlreadyInhibited(t *testing.T) {
	_, _, peer := setup(t)

	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(8), wire.ObjectID(7), wire.ObjectID(5))
	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(9), wire.ObjectID(7), wire.ObjectID(5))

	obj, code := peer.Error()
	assert.Equal(t, uint32(6), obj)
	assert.Equal(t, protoinhibit.ManagerErrorAlreadyInhibited, code)
}

func TestInhibitAfterDestroy(t *testing.T) {
	_, _, peer := setup(t)

	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(8), wire.ObjectID(7), wire.ObjectID(5))
	peer.Send(8, protoinhibit.Inhibitor, protoinhibit.InhibitorDestroy)
	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(9), wire.ObjectID(7), wire.ObjectID(5))
	peer.Sync(10)
}

func TestSurfaceDestroyed(t *testing.T) {
	display, _, peer := setup(t)

	peer.Send(6, protoinhibit.Manager, protoinhibit.ManagerInhibitShortcuts, wire.ObjectID(8), wire.ObjectID(7), wire.ObjectID(5))
	peer.Sync(9)
	inh := inhibitor(t, display)

	peer.Send(7, wayland.Surface, wayland.SurfaceDestroy)
	peer.Sync(10)

	err := display.Call(context.Background(), func() error {
		assert.Nil(t, inh.Surface())
		inh.Activate()
		assert.False(t, inh.Active())
		return nil
	})
	require.NoError(t, err)
}
