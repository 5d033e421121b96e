package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/internal/config"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/server/linuxdmabuf"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wlkit.toml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	c, err := config.Load(config.New(""))
	require.NoError(t, err)

	assert.Empty(t, c.Socket)
	assert.Equal(t, "seat0", c.Seat.Name)
	caps, err := c.Seat.Caps()
	require.NoError(t, err)
	assert.Equal(t, wayland.SeatCapabilityPointer|wayland.SeatCapabilityKeyboard, caps)
	assert.True(t, c.Idle.Enabled)
	assert.Equal(t, uint32(2), c.Idle.Version)
	assert.Equal(t, uint32(3), c.Dmabuf.Version)
	assert.True(t, c.ShortcutsInhibit.Enabled)
	assert.Equal(t, "info", c.Log.Level)

	table, err := c.Dmabuf.Table()
	require.NoError(t, err)
	assert.Equal(t, []linuxdmabuf.Format{
		{Format: fourcc.ARGB8888, Modifiers: []uint64{fourcc.ModLinear}},
		{Format: fourcc.XRGB8888, Modifiers: []uint64{fourcc.ModLinear}},
	}, table)
}

func TestFile(t *testing.T) {
	path := writeConfig(t, `
socket = "wayland-test"

[seat]
name = "seat1"
capabilities = ["keyboard", "touch"]

[shm]
formats = ["ABGR8888", "RG16"]

[idle]
version = 1
timeouts = false

[dmabuf]
version = 2

[[dmabuf.formats]]
format = "NV12"
modifiers = [72057594037927937]

[[dmabuf.formats]]
format = "XR24"

[log]
level = "debug"
format = "json"
`)

	c, err := config.Load(config.New(path))
	require.NoError(t, err)

	assert.Equal(t, "wayland-test", c.Socket)
	assert.Equal(t, "seat1", c.Seat.Name)
	caps, err := c.Seat.Caps()
	require.NoError(t, err)
	assert.Equal(t, wayland.SeatCapabilityKeyboard|wayland.SeatCapabilityTouch, caps)

	formats, err := c.Shm.Fourccs()
	require.NoError(t, err)
	assert.Equal(t, []fourcc.Format{fourcc.ABGR8888, fourcc.RGB565}, formats)

	assert.True(t, c.Idle.Enabled)
	assert.Equal(t, uint32(1), c.Idle.Version)
	assert.False(t, c.Idle.Timeouts)

	table, err := c.Dmabuf.Table()
	require.NoError(t, err)
	assert.Equal(t, []linuxdmabuf.Format{
		{Format: fourcc.NV12, Modifiers: []uint64{0x0100000000000001}},
		{Format: fourcc.XRGB8888},
	}, table)

	var buf bytes.Buffer
	logger := log.New(&buf)
	require.NoError(t, c.Log.Apply(logger))
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	logger.Debug("hello", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestEnv(t *testing.T) {
	t.Setenv("WLKIT_SOCKET", "/tmp/wlkit-env")
	t.Setenv("WLKIT_IDLE_ENABLED", "false")
	t.Setenv("WLKIT_LOG_LEVEL", "warn")

	c, err := config.Load(config.New(writeConfig(t, `socket = "from-file"`)))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/wlkit-env", c.Socket)
	assert.False(t, c.Idle.Enabled)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Capability", "[seat]\ncapabilities = [\"tablet\"]"},
		{"ShmFormat", "[shm]\nformats = [\"RGB\"]"},
		{"IdleVersion", "[idle]\nversion = 3"},
		{"DmabufVersion", "[dmabuf]\nversion = 0"},
		{"DmabufFormat", "[[dmabuf.formats]]\nformat = \"not-a-format\""},
		{"LogLevel", "[log]\nlevel = \"loud\""},
		{"LogFormat", "[log]\nformat = \"xml\""},
		{"Syntax", "[seat"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := config.Load(config.New(writeConfig(t, test.data)))
			assert.Error(t, err)
		})
	}
}

func TestDisabledSkipsValidation(t *testing.T) {
	c, err := config.Load(config.New(writeConfig(t, "[idle]\nenabled = false\nversion = 9")))
	require.NoError(t, err)
	assert.False(t, c.Idle.Enabled)
}
