// Package wayland describes the interfaces of the core Wayland
// protocol that are used by this module.
package wayland

import "deedles.dev/wlkit/wire"

var Display = &wire.Interface{
	Name:    "wl_display",
	Version: 1,
	Requests: []wire.Message{
		{Name: "sync", Signature: "n", Creates: Callback},
		{Name: "get_registry", Signature: "n", Creates: Registry},
	},
	Events: []wire.Message{
		{Name: "error", Signature: "ous"},
		{Name: "delete_id", Signature: "u"},
	},
}

const (
	DisplaySync uint16 = iota
	DisplayGetRegistry
)

const (
	DisplayEventError uint16 = iota
	DisplayEventDeleteID
)

const (
	DisplayErrorInvalidObject uint32 = iota
	DisplayErrorInvalidMethod
	DisplayErrorNoMemory
	DisplayErrorImplementation
)

var Registry = &wire.Interface{
	Name:    "wl_registry",
	Version: 1,
	Requests: []wire.Message{
		{Name: "bind", Signature: "usun"},
	},
	Events: []wire.Message{
		{Name: "global", Signature: "usu"},
		{Name: "global_remove", Signature: "u"},
	},
}

const RegistryBind uint16 = 0

const (
	RegistryEventGlobal uint16 = iota
	RegistryEventGlobalRemove
)

var Callback = &wire.Interface{
	Name:    "wl_callback",
	Version: 1,
	Events: []wire.Message{
		{Name: "done", Signature: "u", Destructor: true},
	},
}

const CallbackEventDone uint16 = 0

var Compositor = &wire.Interface{
	Name:    "wl_compositor",
	Version: 6,
	Requests: []wire.Message{
		{Name: "create_surface", Signature: "n", Creates: Surface},
		{Name: "create_region", Signature: "n", Creates: Region},
	},
}

const (
	CompositorCreateSurface uint16 = iota
	CompositorCreateRegion
)

var Surface = &wire.Interface{
	Name:    "wl_surface",
	Version: 6,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "attach", Signature: "?oii"},
		{Name: "damage", Signature: "iiii"},
		{Name: "frame", Signature: "n", Creates: Callback},
		{Name: "set_opaque_region", Signature: "?o"},
		{Name: "set_input_region", Signature: "?o"},
		{Name: "commit"},
		{Name: "set_buffer_transform", Since: 2, Signature: "i"},
		{Name: "set_buffer_scale", Since: 3, Signature: "i"},
		{Name: "damage_buffer", Since: 4, Signature: "iiii"},
		{Name: "offset", Since: 5, Signature: "ii"},
	},
	Events: []wire.Message{
		{Name: "enter", Signature: "o"},
		{Name: "leave", Signature: "o"},
		{Name: "preferred_buffer_scale", Since: 6, Signature: "i"},
		{Name: "preferred_buffer_transform", Since: 6, Signature: "u"},
	},
}

const (
	SurfaceDestroy uint16 = iota
	SurfaceAttach
	SurfaceDamage
	SurfaceFrame
	SurfaceSetOpaqueRegion
	SurfaceSetInputRegion
	SurfaceCommit
	SurfaceSetBufferTransform
	SurfaceSetBufferScale
	SurfaceDamageBuffer
	SurfaceOffset
)

const (
	SurfaceEventEnter uint16 = iota
	SurfaceEventLeave
	SurfaceEventPreferredBufferScale
	SurfaceEventPreferredBufferTransform
)

const (
	SurfaceErrorInvalidScale uint32 = iota
	SurfaceErrorInvalidTransform
	SurfaceErrorInvalidSize
	SurfaceErrorInvalidOffset
	SurfaceErrorDefunctRoleObject
)

var Region = &wire.Interface{
	Name:    "wl_region",
	Version: 1,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "add", Signature: "iiii"},
		{Name: "subtract", Signature: "iiii"},
	},
}

const (
	RegionDestroy uint16 = iota
	RegionAdd
	RegionSubtract
)

var Shm = &wire.Interface{
	Name:    "wl_shm",
	Version: 2,
	Requests: []wire.Message{
		{Name: "create_pool", Signature: "nhi", Creates: ShmPool},
		{Name: "release", Since: 2, Destructor: true},
	},
	Events: []wire.Message{
		{Name: "format", Signature: "u"},
	},
}

const (
	ShmCreatePool uint16 = iota
	ShmRelease
)

const ShmEventFormat uint16 = 0

const (
	ShmErrorInvalidFormat uint32 = iota
	ShmErrorInvalidStride
	ShmErrorInvalidFD
)

const (
	ShmFormatArgb8888 uint32 = 0
	ShmFormatXrgb8888 uint32 = 1
)

var ShmPool = &wire.Interface{
	Name:    "wl_shm_pool",
	Version: 2,
	Requests: []wire.Message{
		{Name: "create_buffer", Signature: "niiiiu", Creates: Buffer},
		{Name: "destroy", Destructor: true},
		{Name: "resize", Signature: "i"},
	},
}

const (
	ShmPoolCreateBuffer uint16 = iota
	ShmPoolDestroy
	ShmPoolResize
)

var Buffer = &wire.Interface{
	Name:    "wl_buffer",
	Version: 1,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
	},
	Events: []wire.Message{
		{Name: "release"},
	},
}

const BufferDestroy uint16 = 0

const BufferEventRelease uint16 = 0

var Seat = &wire.Interface{
	Name:    "wl_seat",
	Version: 9,
	Requests: []wire.Message{
		{Name: "get_pointer", Signature: "n", Creates: Pointer},
		{Name: "get_keyboard", Signature: "n", Creates: Keyboard},
		{Name: "get_touch", Signature: "n", Creates: Touch},
		{Name: "release", Since: 5, Destructor: true},
	},
	Events: []wire.Message{
		{Name: "capabilities", Signature: "u"},
		{Name: "name", Since: 2, Signature: "s"},
	},
}

const (
	SeatGetPointer uint16 = iota
	SeatGetKeyboard
	SeatGetTouch
	SeatRelease
)

const (
	SeatEventCapabilities uint16 = iota
	SeatEventName
)

const SeatErrorMissingCapability uint32 = 0

const (
	SeatCapabilityPointer  uint32 = 1
	SeatCapabilityKeyboard uint32 = 2
	SeatCapabilityTouch    uint32 = 4
)

var Pointer = &wire.Interface{
	Name:    "wl_pointer",
	Version: 9,
	Requests: []wire.Message{
		{Name: "set_cursor", Signature: "u?oii"},
		{Name: "release", Since: 3, Destructor: true},
	},
	Events: []wire.Message{
		{Name: "enter", Signature: "uoff"},
		{Name: "leave", Signature: "uo"},
		{Name: "motion", Signature: "uff"},
		{Name: "button", Signature: "uuuu"},
		{Name: "axis", Signature: "uuf"},
		{Name: "frame", Since: 5},
		{Name: "axis_source", Since: 5, Signature: "u"},
		{Name: "axis_stop", Since: 5, Signature: "uu"},
		{Name: "axis_discrete", Since: 5, Signature: "ui"},
		{Name: "axis_value120", Since: 8, Signature: "ui"},
		{Name: "axis_relative_direction", Since: 9, Signature: "uu"},
	},
}

const (
	PointerSetCursor uint16 = iota
	PointerRelease
)

const (
	PointerEventEnter uint16 = iota
	PointerEventLeave
	PointerEventMotion
	PointerEventButton
	PointerEventAxis
	PointerEventFrame
	PointerEventAxisSource
	PointerEventAxisStop
	PointerEventAxisDiscrete
	PointerEventAxisValue120
	PointerEventAxisRelativeDirection
)

const (
	PointerButtonStateReleased uint32 = iota
	PointerButtonStatePressed
)

var Keyboard = &wire.Interface{
	Name:    "wl_keyboard",
	Version: 9,
	Requests: []wire.Message{
		{Name: "release", Since: 3, Destructor: true},
	},
	Events: []wire.Message{
		{Name: "keymap", Signature: "uhu"},
		{Name: "enter", Signature: "uoa"},
		{Name: "leave", Signature: "uo"},
		{Name: "key", Signature: "uuuu"},
		{Name: "modifiers", Signature: "uuuuu"},
		{Name: "repeat_info", Since: 4, Signature: "ii"},
	},
}

const KeyboardRelease uint16 = 0

const (
	KeyboardEventKeymap uint16 = iota
	KeyboardEventEnter
	KeyboardEventLeave
	KeyboardEventKey
	KeyboardEventModifiers
	KeyboardEventRepeatInfo
)

const (
	KeyboardKeymapFormatNoKeymap uint32 = iota
	KeyboardKeymapFormatXkbV1
)

const (
	KeyboardKeyStateReleased uint32 = iota
	KeyboardKeyStatePressed
)

var Touch = &wire.Interface{
	Name:    "wl_touch",
	Version: 9,
	Requests: []wire.Message{
		{Name: "release", Since: 3, Destructor: true},
	},
	Events: []wire.Message{
		{Name: "down", Signature: "uuoiff"},
		{Name: "up", Signature: "uui"},
		{Name: "motion", Signature: "uiff"},
		{Name: "frame"},
		{Name: "cancel"},
		{Name: "shape", Since: 6, Signature: "iff"},
		{Name: "orientation", Since: 6, Signature: "if"},
	},
}

const TouchRelease uint16 = 0

// Interfaces lists every interface in the package.
var Interfaces = []*wire.Interface{
	Display,
	Registry,
	Callback,
	Compositor,
	Surface,
	Region,
	Shm,
	ShmPool,
	Buffer,
	Seat,
	Pointer,
	Keyboard,
	Touch,
}
