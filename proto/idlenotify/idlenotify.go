// Package idlenotify describes the ext-idle-notify-v1 protocol.
package idlenotify

import "deedles.dev/wlkit/wire"

var Notifier = &wire.Interface{
	Name:    "ext_idle_notifier_v1",
	Version: 2,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "get_idle_notification", Signature: "nuo", Creates: Notification},
		{Name: "get_input_idle_notification", Since: 2, Signature: "nuo", Creates: Notification},
	},
}

const (
	NotifierDestroy uint16 = iota
	NotifierGetIdleNotification
	NotifierGetInputIdleNotification
)

var Notification = &wire.Interface{
	Name:    "ext_idle_notification_v1",
	Version: 2,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
	},
	Events: []wire.Message{
		{Name: "idled"},
		{Name: "resumed"},
	},
}

const NotificationDestroy uint16 = 0

const (
	NotificationEventIdled uint16 = iota
	NotificationEventResumed
)

// Interfaces lists every interface in the package.
var Interfaces = []*wire.Interface{
	Notifier,
	Notification,
}

