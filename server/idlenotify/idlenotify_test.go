package idlenotify_test

import (
	"context"
	"testing"
	"time"

	"deedles.dev/wlkit/internal/wltest"
	protoidle "deedles.dev/wlkit/proto/idlenotify"
	"deedles.dev/wlkit/proto/wayland"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/server/idlenotify"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	display  *wl.Display
	seat     *wl.Seat
	notifier *idlenotify.Notifier
	peer     *wltest.Peer
}

// setup binds the seat as 4 and the notifier as 5.
func setup(t *testing.T, timeouts bool) *fixture {
	display := wl.NewDisplay()
	f := fixture{
		display:  display,
		seat:     wl.NewSeat(display, "seat0", wayland.SeatCapabilityPointer),
		notifier: idlenotify.New(display, 2, timeouts),
	}
	wltest.Run(t, display)

	f.peer = wltest.Connect(t, display)
	globals := f.peer.Registry(2)
	f.peer.Bind(2, globals, wayland.Seat, 1, 4)
	f.peer.Bind(2, globals, protoidle.Notifier, 2, 5)
	return &f
}

func (f *fixture) call(t *testing.T, fn func()) {
	t.Helper()

	err := f.display.Call(context.Background(), func() error {
		fn()
		return nil
	})
	require.NoError(t, err)
}

func (f *fixture) notifications(t *testing.T) []*idlenotify.Notification {
	var notes []*idlenotify.Notification
	f.call(t, func() { notes = f.notifier.Notifications() })
	return notes
}

func countEvents(msgs []*wire.MessageBuffer, sender uint32, op uint16) (n int) {
	for _, msg := range msgs {
		if (msg.Sender() == sender) && (msg.Op() == op) {
			n++
		}
	}
	return n
}

func TestTimeout(t *testing.T) {
	f := setup(t, true)

	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(1), wire.ObjectID(4))
	f.peer.Until(6, protoidle.NotificationEventIdled)

	notes := f.notifications(t)
	require.Len(t, notes, 1)
	note := notes[0]
	f.call(t, func() {
		assert.Equal(t, time.Millisecond, note.Duration())
		assert.Same(t, f.seat, note.Seat())
		assert.True(t, note.IsIdle())
		assert.False(t, note.Input())

		f.notifier.Activity(f.seat)
	})

	f.peer.Until(6, protoidle.NotificationEventResumed)
	f.peer.Until(6, protoidle.NotificationEventIdled)
}

func TestEdgeTriggered(t *testing.T) {
	f := setup(t, false)

	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(1), wire.ObjectID(4))
	f.peer.Sync(7)

	note := f.notifications(t)[0]
	f.call(t, func() {
		note.Idle()
		note.Idle()
	})
	msgs := f.peer.Sync(8)
	assert.Equal(t, 1, countEvents(msgs, 6, protoidle.NotificationEventIdled))

	f.call(t, func() {
		note.Resume()
		note.Resume()
	})
	msgs = f.peer.Sync(9)
	assert.Equal(t, 1, countEvents(msgs, 6, protoidle.NotificationEventResumed))
	assert.Equal(t, 0, countEvents(msgs, 6, protoidle.NotificationEventIdled))
}

func TestInhibited(t *testing.T) {
	f := setup(t, false)

	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(1000), wire.ObjectID(4))
	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetInputIdleNotification, wire.ObjectID(7), uint32(1000), wire.ObjectID(4))
	f.peer.Sync(8)

	f.call(t, func() {
		for _, note := range f.notifier.Notifications() {
			note.Idle()
		}
		f.notifier.SetInhibited(true)
		assert.True(t, f.notifier.Inhibited())
	})

	msgs := f.peer.Sync(9)
	assert.Equal(t, 1, countEvents(msgs, 6, protoidle.NotificationEventResumed))
	assert.Equal(t, 0, countEvents(msgs, 7, protoidle.NotificationEventResumed))
}

func TestSeatDestroyed(t *testing.T) {
	f := setup(t, false)

	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(1000), wire.ObjectID(4))
	f.peer.Sync(7)

	note := f.notifications(t)[0]
	f.call(t, func() {
		assert.NotNil(t, note.Seat())
		f.seat.Destroy()
		assert.Nil(t, note.Seat())
	})
}

func TestDestroyStopsTimer(t *testing.T) {
	f := setup(t, true)

	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(50), wire.ObjectID(4))
	f.peer.Send(6, protoidle.Notification, protoidle.NotificationDestroy)
	f.peer.Sync(7)
	assert.Empty(t, f.notifications(t))

	time.Sleep(100 * time.Millisecond)
	msgs := f.peer.Sync(8)
	assert.Equal(t, 0, countEvents(msgs, 6, protoidle.NotificationEventIdled))
}

func TestInputVersion(t *testing.T) {
	display := wl.NewDisplay()
	wl.NewSeat(display, "seat0", 0)
	idlenotify.New(display, 2, false)
	wltest.Run(t, display)

	peer := wltest.Connect(t, display)
	globals := peer.Registry(2)
	peer.Bind(2, globals, wayland.Seat, 1, 4)
	peer.Bind(2, globals, protoidle.Notifier, 1, 5)
	peer.Send(5, protoidle.Notifier, protoidle.NotifierGetInputIdleNotification, wire.ObjectID(6), uint32(1), wire.ObjectID(4))

	_, code := peer.Error()
	assert.Equal(t, wayland.DisplayErrorInvalidMethod, code)
}

func TestNullSeat(t *testing.T) {
	f := setup(t, true)
	f.peer.Send(5, protoidle.Notifier, protoidle.NotifierGetIdleNotification, wire.ObjectID(6), uint32(1), wire.ObjectID(0))

	_, code := f.peer.Error()
	assert.Equal(t, wayland.DisplayErrorInvalidObject, code)
	assert.Empty(t, f.notifications(t))
}
