// Package shortcutsinhibit describes the
// keyboard-shortcuts-inhibit-unstable-v1 protocol.
package shortcutsinhibit

import "deedles.dev/wlkit/wire"

var Manager = &wire.Interface{
	Name:    "zwp_keyboard_shortcuts_inhibit_manager_v1",
	Version: 1,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "inhibit_shortcuts", Signature: "noo", Creates: Inhibitor},
	},
}

const (
	ManagerDestroy uint16 = iota
	ManagerInhibitShortcuts
)

const ManagerErrorAlreadyInhibited uint32 = 0

var Inhibitor = &wire.Interface{
	Name:    "zwp_keyboard_shortcuts_inhibitor_v1",
	Version: 1,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
	},
	Events: []wire.Message{
		{Name: "active"},
		{Name: "inactive"},
	},
}

const InhibitorDestroy uint16 = 0

const (
	InhibitorEventActive uint16 = iota
	InhibitorEventInactive
)

// Interfaces lists every interface in the package.
var Interfaces = []*wire.Interface{
	Manager,
	Inhibitor,
}
