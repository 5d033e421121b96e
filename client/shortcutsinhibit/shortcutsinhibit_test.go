package shortcutsinhibit_test

import (
	"context"
	"testing"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/client/shortcutsinhibit"
	"deedles.dev/wlkit/internal/wltest"
	protoinhibit "deedles.dev/wlkit/proto/shortcutsinhibit"
	"deedles.dev/wlkit/proto/wayland"
	srv "deedles.dev/wlkit/server"
	srvinhibit "deedles.dev/wlkit/server/shortcutsinhibit"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInhibit(t *testing.T) {
	server := srv.NewDisplay()
	srv.NewCompositor(server)
	srv.NewSeat(server, "seat0", wayland.SeatCapabilityKeyboard)
	manager := srvinhibit.New(server)
	var inhibitors []*srvinhibit.Inhibitor
	manager.OnInhibitor(func(inh *srvinhibit.Inhibitor) { inhibitors = append(inhibitors, inh) })
	wltest.Run(t, server)

	display := wl.NewDisplay(wltest.Dial(t, server))
	t.Cleanup(func() { display.Close() })
	registry := display.GetRegistry()
	wltest.RoundTrip(t, display)

	bind := func(iface *wire.Interface) uint32 {
		name, _, ok := registry.Find(iface)
		require.True(t, ok, "no %v global", iface.Name)
		return name
	}
	comp := wl.BindCompositor(registry, bind(wayland.Compositor), 4)
	seat := wl.BindSeat(registry, bind(wayland.Seat), 1)
	m := shortcutsinhibit.Bind(registry, bind(protoinhibit.Manager), 1)

	surface := comp.CreateSurface()
	inh := m.InhibitShortcuts(surface, seat)
	var active, inactive int
	inh.Active = func() { active++ }
	inh.Inactive = func() { inactive++ }
	wltest.RoundTrip(t, display)

	call := func(f func(*srvinhibit.Inhibitor)) {
		err := server.Call(context.Background(), func() error {
			if assert.Len(t, inhibitors, 1) {
				f(inhibitors[0])
			}
			return nil
		})
		require.NoError(t, err)
	}

	call((*srvinhibit.Inhibitor).Activate)
	wltest.RoundTrip(t, display)
	assert.True(t, inh.IsActive())
	assert.Equal(t, 1, active)

	call((*srvinhibit.Inhibitor).Deactivate)
	wltest.RoundTrip(t, display)
	assert.False(t, inh.IsActive())
	assert.Equal(t, 1, inactive)

	m.InhibitShortcuts(surface, seat)
	ctx, cancel := context.WithTimeout(context.Background(), wltest.Timeout)
	defer cancel()
	var perr *wl.ProtocolError
	require.ErrorAs(t, display.RoundTrip(ctx), &perr)
	assert.Equal(t, protoinhibit.ManagerErrorAlreadyInhibited, perr.Code)
	assert.Equal(t, m.Proxy().ID(), perr.ObjectID)
}
