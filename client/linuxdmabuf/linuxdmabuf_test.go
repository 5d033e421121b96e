package linuxdmabuf_test

import (
	"context"
	"errors"
	"testing"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/client/linuxdmabuf"
	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/internal/wltest"
	protodmabuf "deedles.dev/wlkit/proto/linuxdmabuf"
	srv "deedles.dev/wlkit/server"
	srvdmabuf "deedles.dev/wlkit/server/linuxdmabuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failWidth is a width that the test importer refuses.
const failWidth = 13

type fixture struct {
	server  *srv.Display
	display *wl.Display
	dmabuf  *linuxdmabuf.Dmabuf
	buffers []*srv.DmabufBuffer
}

func setup(t *testing.T, version uint32) *fixture {
	f := fixture{server: srv.NewDisplay()}
	importer := srvdmabuf.ImporterFunc(func(attrs *srv.DmabufAttributes) (any, error) {
		if attrs.Width == failWidth {
			return nil, errors.New("refused")
		}
		return "imported", nil
	})
	d := srvdmabuf.New(f.server, 3, []srvdmabuf.Format{
		{Format: fourcc.ARGB8888, Modifiers: []uint64{fourcc.ModLinear, 0x0100000000000001}},
		{Format: fourcc.XRGB8888},
	}, importer)
	d.OnBuffer(func(b *srv.DmabufBuffer) { f.buffers = append(f.buffers, b) })
	wltest.Run(t, f.server)

	f.display = wl.NewDisplay(wltest.Dial(t, f.server))
	t.Cleanup(func() { f.display.Close() })

	registry := f.display.GetRegistry()
	wltest.RoundTrip(t, f.display)
	name, _, ok := registry.Find(protodmabuf.Dmabuf)
	require.True(t, ok)
	f.dmabuf = linuxdmabuf.Bind(registry, name, version)
	wltest.RoundTrip(t, f.display)
	return &f
}

func (f *fixture) params(t *testing.T) *linuxdmabuf.Params {
	t.Helper()

	p := f.dmabuf.CreateParams()
	require.NoError(t, p.Add(wltest.Memfd(t, 4096), 0, 0, 64, fourcc.ModLinear))
	return p
}

func TestFormats(t *testing.T) {
	f := setup(t, 3)

	assert.Equal(t, map[fourcc.Format][]uint64{
		fourcc.ARGB8888: {fourcc.ModLinear, 0x0100000000000001},
		fourcc.XRGB8888: {fourcc.ModInvalid},
	}, f.dmabuf.Formats())
}

func TestFormatsV1(t *testing.T) {
	f := setup(t, 1)

	formats := f.dmabuf.Formats()
	assert.Len(t, formats, 2)
	assert.Empty(t, formats[fourcc.ARGB8888])
}

func TestCreate(t *testing.T) {
	f := setup(t, 3)

	p := f.params(t)
	var created *wl.Buffer
	p.Created = func(buf *wl.Buffer) { created = buf }
	p.Failed = func() { t.Error("unexpected failure") }
	require.NoError(t, p.Create(16, 16, fourcc.ARGB8888, 0))
	wltest.RoundTrip(t, f.display)

	require.NotNil(t, created)
	assert.True(t, created.Proxy().Alive())
	assert.GreaterOrEqual(t, created.Proxy().ID(), uint32(0xff000000))

	err := f.server.Call(context.Background(), func() error {
		if assert.Len(t, f.buffers, 1) {
			assert.Equal(t, "imported", f.buffers[0].Handle())
			assert.Equal(t, created.Proxy().ID(), f.buffers[0].Resource().ID())
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, created.Destroy())
	require.NoError(t, p.Destroy())
	wltest.RoundTrip(t, f.display)
}

func TestCreateFailed(t *testing.T) {
	f := setup(t, 3)

	p := f.params(t)
	var failed bool
	p.Failed = func() { failed = true }
	require.NoError(t, p.Create(failWidth, 16, fourcc.ARGB8888, 0))
	wltest.RoundTrip(t, f.display)

	assert.True(t, failed)
	assert.Nil(t, f.display.Err())
}

func TestCreateImmed(t *testing.T) {
	f := setup(t, 3)

	buf, err := f.params(t).CreateImmed(16, 16, fourcc.ARGB8888, 0)
	require.NoError(t, err)
	wltest.RoundTrip(t, f.display)
	assert.True(t, buf.Proxy().Alive())

	_, err = f.params(t).CreateImmed(failWidth, 16, fourcc.ARGB8888, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), wltest.Timeout)
	defer cancel()
	var perr *wl.ProtocolError
	require.ErrorAs(t, f.display.RoundTrip(ctx), &perr)
	assert.Equal(t, protodmabuf.BufferParamsErrorInvalidWlBuffer, perr.Code)
	assert.Equal(t, "zwp_linux_buffer_params_v1", perr.Interface)
}

func TestCreateImmedVersion(t *testing.T) {
	f := setup(t, 1)

	p := f.params(t)
	_, err := p.CreateImmed(16, 16, fourcc.ARGB8888, 0)
	assert.Error(t, err)
	wltest.RoundTrip(t, f.display)
}
