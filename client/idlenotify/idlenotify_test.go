package idlenotify_test

import (
	"context"
	"testing"
	"time"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/client/idlenotify"
	"deedles.dev/wlkit/internal/wltest"
	protoidle "deedles.dev/wlkit/proto/idlenotify"
	"deedles.dev/wlkit/proto/wayland"
	srv "deedles.dev/wlkit/server"
	srvidle "deedles.dev/wlkit/server/idlenotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *srv.Display
	notifier *srvidle.Notifier
	display  *wl.Display
	seat     *wl.Seat
	client   *idlenotify.Notifier
}

func setup(t *testing.T, version uint32) *fixture {
	f := fixture{server: srv.NewDisplay()}
	srv.NewSeat(f.server, "seat0", wayland.SeatCapabilityKeyboard)
	f.notifier = srvidle.New(f.server, 2, true)
	wltest.Run(t, f.server)

	f.display = wl.NewDisplay(wltest.Dial(t, f.server))
	t.Cleanup(func() { f.display.Close() })

	registry := f.display.GetRegistry()
	wltest.RoundTrip(t, f.display)

	name, _, ok := registry.Find(wayland.Seat)
	require.True(t, ok)
	f.seat = wl.BindSeat(registry, name, 1)
	name, _, ok = registry.Find(protoidle.Notifier)
	require.True(t, ok)
	f.client = idlenotify.Bind(registry, name, version)
	wltest.RoundTrip(t, f.display)
	return &f
}

// dispatchUntil dispatches until cond is true.
func (f *fixture) dispatchUntil(t *testing.T, cond func() bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wltest.Timeout)
	defer cancel()
	for !cond() {
		require.NoError(t, f.display.Dispatch(ctx))
	}
}

func TestIdleResume(t *testing.T) {
	f := setup(t, 2)

	var idled, resumed int
	note := f.client.GetIdleNotification(time.Millisecond, f.seat)
	require.NoError(t, note.Err())
	note.Idled = func() { idled++ }
	note.Resumed = func() { resumed++ }

	f.dispatchUntil(t, note.Idle)
	assert.Equal(t, 1, idled)

	err := f.server.Call(context.Background(), func() error {
		f.notifier.Activity(nil)
		return nil
	})
	require.NoError(t, err)

	f.dispatchUntil(t, func() bool { return resumed > 0 })
	assert.Equal(t, 1, resumed)

	require.NoError(t, note.Destroy())
	wltest.RoundTrip(t, f.display)
}

func TestInputIdleVersion(t *testing.T) {
	f := setup(t, 1)

	note := f.client.GetInputIdleNotification(time.Second, f.seat)
	assert.Error(t, note.Err())
	assert.False(t, note.Proxy().Alive())
	wltest.RoundTrip(t, f.display)
}
