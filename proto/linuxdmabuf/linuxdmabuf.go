// Package linuxdmabuf describes the linux-dmabuf-unstable-v1
// protocol, up to version 3.
package linuxdmabuf

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

var Dmabuf = &wire.Interface{
	Name:    "zwp_linux_dmabuf_v1",
	Version: 3,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "create_params", Signature: "n", Creates: BufferParams},
	},
	Events: []wire.Message{
		{Name: "format", Signature: "u"},
		{Name: "modifier", Since: 3, Signature: "uuu"},
	},
}

const (
	DmabufDestroy uint16 = iota
	DmabufCreateParams
)

const (
	DmabufEventFormat uint16 = iota
	DmabufEventModifier
)

var BufferParams = &wire.Interface{
	Name:    "zwp_linux_buffer_params_v1",
	Version: 3,
	Requests: []wire.Message{
		{Name: "destroy", Destructor: true},
		{Name: "add", Signature: "huuuuu"},
		{Name: "create", Signature: "iiuu"},
		{Name: "create_immed", Since: 2, Signature: "niiuu", Creates: wayland.Buffer},
	},
	Events: []wire.Message{
		{Name: "created", Signature: "n", Creates: wayland.Buffer},
		{Name: "failed"},
	},
}

const (
	BufferParamsDestroy uint16 = iota
	BufferParamsAdd
	BufferParamsCreate
	BufferParamsCreateImmed
)

const (
	BufferParamsEventCreated uint16 = iota
	BufferParamsEventFailed
)

const (
	BufferParamsErrorAlreadyUsed uint32 = iota
	BufferParamsErrorPlaneIdx
	BufferParamsErrorPlaneSet
	BufferParamsErrorIncomplete
	BufferParamsErrorInvalidFormat
	BufferParamsErrorInvalidDimensions
	BufferParamsErrorOutOfBounds
	BufferParamsErrorInvalidWlBuffer
)

const (
	BufferParamsFlagsYInvert     uint32 = 1
	BufferParamsFlagsInterlaced  uint32 = 2
	BufferParamsFlagsBottomFirst uint32 = 4
)

// MaxPlanes is the largest number of planes a buffer may be made of.
const MaxPlanes = 4

// Interfaces lists every interface in the package.
var Interfaces = []*wire.Interface{
	Dmabuf,
	BufferParams,
}
