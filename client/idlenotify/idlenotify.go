// Package idlenotify implements the client side of
// ext-idle-notify-v1.
package idlenotify

import (
	"time"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/proto/idlenotify"
	"deedles.dev/wlkit/wire"
)

// Notifier is an ext_idle_notifier_v1.
type Notifier struct {
	proxy *wl.Proxy
}

// Bind binds the ext_idle_notifier_v1 global with the given name.
func Bind(registry *wl.Registry, name, version uint32) *Notifier {
	var n Notifier
	n.proxy = registry.Bind(name, idlenotify.Notifier, version, nil)
	n.proxy.SetData(&n)
	return &n
}

func (n *Notifier) Proxy() *wl.Proxy {
	return n.proxy
}

// GetIdleNotification asks to be notified when the seat has been idle
// for the given duration, in whole milliseconds. Idle inhibitors are
// respected.
func (n *Notifier) GetIdleNotification(timeout time.Duration, seat *wl.Seat) *Notification {
	return n.get(idlenotify.NotifierGetIdleNotification, timeout, seat)
}

// GetInputIdleNotification is like GetIdleNotification but ignores
// idle inhibitors. It requires version 2.
func (n *Notifier) GetInputIdleNotification(timeout time.Duration, seat *wl.Seat) *Notification {
	return n.get(idlenotify.NotifierGetInputIdleNotification, timeout, seat)
}

func (n *Notifier) get(op uint16, timeout time.Duration, seat *wl.Seat) *Notification {
	var note Notification
	note.proxy = wl.NewProxy(n.proxy.Display(), idlenotify.Notification, n.proxy.Version(), wl.EventFunc(note.event))
	note.proxy.SetData(&note)
	note.err = n.proxy.Request(op, note.proxy, uint32(timeout.Milliseconds()), seat.Proxy())
	if note.err != nil {
		note.proxy.Forget()
	}
	return &note
}

func (n *Notifier) Destroy() error {
	return n.proxy.Destroy()
}

// Notification is an ext_idle_notification_v1.
type Notification struct {
	Idled   func()
	Resumed func()

	proxy *wl.Proxy
	idle  bool
	err   error
}

func (note *Notification) Proxy() *wl.Proxy {
	return note.proxy
}

// Err returns the error, if any, from queuing the request that
// created the notification.
func (note *Notification) Err() error {
	return note.err
}

// Idle reports whether the last event received was idled.
func (note *Notification) Idle() bool {
	return note.idle
}

func (note *Notification) Destroy() error {
	return note.proxy.Destroy()
}

func (note *Notification) event(p *wl.Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case idlenotify.NotificationEventIdled:
		note.idle = true
		if note.Idled != nil {
			note.Idled()
		}
		return nil

	case idlenotify.NotificationEventResumed:
		note.idle = false
		if note.Resumed != nil {
			note.Resumed()
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.Interface().Name, Type: "event", Op: op}
	}
}
