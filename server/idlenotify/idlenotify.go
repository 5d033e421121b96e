// Package idlenotify implements the server side of the
// ext_idle_notify_v1 protocol.
//
// Notifications can be driven directly with Idle and Resume, or, if
// the Notifier is created with timeouts enabled, by timers that are
// restarted whenever Activity is reported for a notification's seat.
package idlenotify

import (
	"slices"
	"time"

	"deedles.dev/wlkit/proto/idlenotify"
	"deedles.dev/wlkit/proto/wayland"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/wire"
)

// Notifier is the ext_idle_notifier_v1 global.
type Notifier struct {
	global        *wl.Global
	display       *wl.Display
	timeouts      bool
	inhibited     bool
	notifications []*Notification

	onNotification wl.Signal[*Notification]
}

// New creates an ext_idle_notifier_v1 global. If timeouts is true,
// notifications go idle on their own once their duration passes
// without activity.
func New(display *wl.Display, version uint32, timeouts bool) *Notifier {
	n := Notifier{
		display:  display,
		timeouts: timeouts,
	}
	n.global = wl.NewGlobal(display, idlenotify.Notifier, version, &n)
	n.global.SetData(&n)
	return &n
}

func (n *Notifier) Global() *wl.Global {
	return n.global
}

// OnNotification registers f to be called for every new
// notification.
func (n *Notifier) OnNotification(f func(*Notification)) *wl.Listener[*Notification] {
	return n.onNotification.Add(f)
}

// Notifications returns every live notification.
func (n *Notifier) Notifications() []*Notification {
	return slices.Clone(n.notifications)
}

// Activity reports user activity on seat. Every notification for
// that seat is resumed and its timer restarted. A nil seat counts as
// activity on every seat.
func (n *Notifier) Activity(seat *wl.Seat) {
	for _, note := range n.Notifications() {
		if (seat != nil) && (note.seat != seat) {
			continue
		}
		note.Resume()
		note.arm()
	}
}

// Inhibited reports whether idling is currently inhibited.
func (n *Notifier) Inhibited() bool {
	return n.inhibited
}

// SetInhibited inhibits or uninhibits idling. While inhibited,
// notifications created with get_idle_notification are resumed and
// their timers stopped. Input idle notifications are unaffected.
func (n *Notifier) SetInhibited(inhibited bool) {
	if inhibited == n.inhibited {
		return
	}
	n.inhibited = inhibited

	for _, note := range n.Notifications() {
		if note.input {
			continue
		}
		if inhibited {
			note.Resume()
		}
		note.arm()
	}
}

func (n *Notifier) Bind(b *wl.Bind) (wl.Implementation, error) {
	return wl.ImplementationFunc(n.request), nil
}

func (n *Notifier) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case idlenotify.NotifierDestroy:
		return nil

	case idlenotify.NotifierGetIdleNotification, idlenotify.NotifierGetInputIdleNotification:
		id := msg.ReadObject()
		timeout := msg.ReadUint()
		seatID := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		seatRes, err := r.Client().ResolveObject(seatID, wayland.Seat)
		if err != nil {
			return err
		}
		seat, _ := wl.SeatFromResource(seatRes)

		res, err := wl.NewResource(r.Client(), idlenotify.Notification, r.Version(), uint32(id), nil)
		if err != nil {
			return err
		}

		note := Notification{
			notifier: n,
			resource: res,
			duration: time.Duration(timeout) * time.Millisecond,
			seat:     seat,
			input:    op == idlenotify.NotifierGetInputIdleNotification,
		}
		res.SetData(&note)
		res.SetImplementation(wl.ImplementationFunc(note.request))
		res.OnDestroy(func(*wl.Resource) { note.destroy() })

		n.notifications = append(n.notifications, &note)
		n.onNotification.Emit(&note)
		note.arm()
		return nil

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}

// Notification is an ext_idle_notification_v1.
type Notification struct {
	notifier *Notifier
	resource *wl.Resource
	duration time.Duration
	seat     *wl.Seat
	input    bool
	idle     bool

	timer *time.Timer
	gen   uint64
}

// NotificationFromResource returns the notification behind an
// ext_idle_notification_v1 resource.
func NotificationFromResource(r *wl.Resource) (*Notification, bool) {
	note, ok := r.Data().(*Notification)
	return note, ok
}

func (note *Notification) Resource() *wl.Resource {
	return note.resource
}

// Duration is how long the seat must be inactive before the
// notification goes idle.
func (note *Notification) Duration() time.Duration {
	return note.duration
}

// Seat returns the seat that the notification was created for, or nil
// if that seat no longer exists.
func (note *Notification) Seat() *wl.Seat {
	if !note.seat.Alive() {
		return nil
	}
	return note.seat
}

// Input reports whether the notification was created with
// get_input_idle_notification, and so ignores idle inhibitors.
func (note *Notification) Input() bool {
	return note.input
}

// IsIdle reports whether idled has been sent without a following
// resumed.
func (note *Notification) IsIdle() bool {
	return note.idle
}

// Idle sends idled unless the notification is already idle.
func (note *Notification) Idle() {
	if note.idle || !note.resource.Alive() {
		return
	}
	note.idle = true
	note.resource.Send(idlenotify.NotificationEventIdled)
}

// Resume sends resumed if the notification is idle.
func (note *Notification) Resume() {
	if !note.idle || !note.resource.Alive() {
		return
	}
	note.idle = false
	note.resource.Send(idlenotify.NotificationEventResumed)
}

// arm restarts the notification's timer. Timers that fire after being
// restarted or stopped are ignored by comparing generations on the
// dispatch goroutine.
func (note *Notification) arm() {
	note.stop()
	if !note.notifier.timeouts || !note.resource.Alive() {
		return
	}
	if note.notifier.inhibited && !note.input {
		return
	}

	gen := note.gen
	display := note.notifier.display
	note.timer = time.AfterFunc(note.duration, func() {
		display.Post(func() {
			if note.gen != gen {
				return
			}
			note.timer = nil
			note.Idle()
		})
	})
}

func (note *Notification) stop() {
	note.gen++
	if note.timer != nil {
		note.timer.Stop()
		note.timer = nil
	}
}

func (note *Notification) destroy() {
	note.stop()
	n := note.notifier
	n.notifications = slices.DeleteFunc(n.notifications, func(n2 *Notification) bool { return n2 == note })
}

func (note *Notification) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case idlenotify.NotificationDestroy:
		return nil

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}
