package proto_test

import (
	"testing"

	"deedles.dev/wlkit/proto/idlenotify"
	"deedles.dev/wlkit/proto/linuxdmabuf"
	"deedles.dev/wlkit/proto/shortcutsinhibit"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	var all []*wire.Interface
	all = append(all, wayland.Interfaces...)
	all = append(all, idlenotify.Interfaces...)
	all = append(all, linuxdmabuf.Interfaces...)
	all = append(all, shortcutsinhibit.Interfaces...)

	for _, iface := range all {
		t.Run(iface.Name, func(t *testing.T) {
			assert.NoError(t, iface.Validate())
		})
	}
}

func TestOpcodes(t *testing.T) {
	assert.Equal(t, "bind", wayland.Registry.Requests[wayland.RegistryBind].Name)
	assert.Equal(t, "damage_buffer", wayland.Surface.Requests[wayland.SurfaceDamageBuffer].Name)
	assert.Equal(t, "create_immed", linuxdmabuf.BufferParams.Requests[linuxdmabuf.BufferParamsCreateImmed].Name)
	assert.Equal(t, "get_input_idle_notification", idlenotify.Notifier.Requests[idlenotify.NotifierGetInputIdleNotification].Name)
	assert.Equal(t, "inhibit_shortcuts", shortcutsinhibit.Manager.Requests[shortcutsinhibit.ManagerInhibitShortcuts].Name)
	assert.Equal(t, "axis_relative_direction", wayland.Pointer.Events[wayland.PointerEventAxisRelativeDirection].Name)
	assert.Equal(t, "repeat_info", wayland.Keyboard.Events[wayland.KeyboardEventRepeatInfo].Name)
	assert.Equal(t, uint32(7), linuxdmabuf.BufferParamsErrorInvalidWlBuffer)
}
