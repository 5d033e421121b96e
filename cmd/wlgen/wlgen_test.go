package main

import (
	"bytes"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, path string, config Config) string {
	t.Helper()

	proto, err := loadXML(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, proto, config))

	_, err = parser.ParseFile(token.NewFileSet(), "out.go", buf.Bytes(), 0)
	require.NoError(t, err)
	return buf.String()
}

func TestGenerateShortcutsInhibit(t *testing.T) {
	src := generate(t, "../../protocol/testdata/keyboard-shortcuts-inhibit-unstable-v1.xml", Config{
		Pkg:      "shortcutsinhibit",
		Prefixes: []string{"zwp_keyboard_shortcuts_inhibit_", "zwp_keyboard_shortcuts_"},
		Suffix:   "_v1",
	})

	assert.Contains(t, src, "package shortcutsinhibit")
	assert.Contains(t, src, "var Manager = &wire.Interface{")
	assert.Contains(t, src, `{Name: "destroy", Destructor: true},`)
	assert.Contains(t, src, `{Name: "inhibit_shortcuts", Signature: "noo", Creates: Inhibitor},`)
	assert.Regexp(t, `ManagerInhibitShortcuts\s+uint16 = 1`, src)
	assert.Regexp(t, `InhibitorEventInactive\s+uint16 = 1`, src)
	assert.Regexp(t, `ManagerErrorAlreadyInhibited\s+uint32 = 0`, src)
	assert.NotContains(t, src, "wayland")
}

func TestGenerateDmabuf(t *testing.T) {
	imp, err := parseImport("wl_=deedles.dev/wlkit/proto/wayland")
	require.NoError(t, err)
	assert.Equal(t, Import{Prefix: "wl_", Name: "wayland", Path: "deedles.dev/wlkit/proto/wayland"}, imp)

	unused, err := parseImport("xdg_=deedles.dev/wlkit/proto/xdgshell")
	require.NoError(t, err)

	src := generate(t, "../../protocol/testdata/linux-dmabuf-unstable-v1.xml", Config{
		Pkg:      "linuxdmabuf",
		Prefixes: []string{"zwp_linux_"},
		Suffix:   "_v1",
		Imports:  []Import{imp, unused},
	})

	assert.Contains(t, src, `"deedles.dev/wlkit/proto/wayland"`)
	assert.NotContains(t, src, "xdgshell")
	assert.Contains(t, src, "var BufferParams = &wire.Interface{")
	assert.Contains(t, src, `{Name: "create_immed", Since: 2, Signature: "niiuu", Creates: wayland.Buffer},`)
	assert.Contains(t, src, `{Name: "modifier", Since: 3, Signature: "uuu"},`)
	assert.Regexp(t, `BufferParamsFlagsBottomFirst\s+uint32 = 4`, src)
	assert.Regexp(t, `BufferParamsErrorInvalidWlBuffer\s+uint32 = 7`, src)
}

func TestParseImportInvalid(t *testing.T) {
	for _, v := range []string{"", "wl_", "=path", "wl_="} {
		_, err := parseImport(v)
		assert.Error(t, err, v)
	}
}

func TestCamel(t *testing.T) {
	var ctx Context
	assert.Equal(t, "DeleteID", ctx.camel("delete_id"))
	assert.Equal(t, "CreateImmed", ctx.camel("create_immed"))
	assert.Equal(t, "Argb8888", ctx.camel("argb8888"))
}
