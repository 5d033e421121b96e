package wl_test

import (
	"bytes"
	"image/color"
	"testing"

	"deedles.dev/wlkit/internal/wltest"
	"deedles.dev/wlkit/proto/wayland"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shmFixture struct {
	display  *wl.Display
	peer     *wltest.Peer
	surfaces []*wl.Surface
}

// setupShm binds the compositor as 4 and wl_shm as 5, creates a
// surface as 6 and a 2048 byte pool as 7, filled with 0xFF, holding
// two 16x16 ARGB buffers as 8 and 9.
func setupShm(t *testing.T) *shmFixture {
	display := wl.NewDisplay()
	comp := wl.NewCompositor(display)
	wl.NewShm(display)

	f := shmFixture{display: display}
	comp.OnSurface(func(s *wl.Surface) { f.surfaces = append(f.surfaces, s) })
	wltest.Run(t, display)

	file := wltest.Memfd(t, 2048)
	_, err := file.Write(bytes.Repeat([]byte{0xFF}, 2048))
	require.NoError(t, err)

	f.peer = wltest.Connect(t, display)
	globals := f.peer.Registry(2)
	f.peer.Bind(2, globals, wayland.Compositor, 4, 4)
	f.peer.Bind(2, globals, wayland.Shm, 1, 5)
	f.peer.Send(4, wayland.Compositor, wayland.CompositorCreateSurface, wire.ObjectID(6))
	f.peer.Send(5, wayland.Shm, wayland.ShmCreatePool, wire.ObjectID(7), file, int32(2048))
	f.peer.Send(7, wayland.ShmPool, wayland.ShmPoolCreateBuffer, wire.ObjectID(8), int32(0), int32(16), int32(16), int32(64), wayland.ShmFormatArgb8888)
	f.peer.Send(7, wayland.ShmPool, wayland.ShmPoolCreateBuffer, wire.ObjectID(9), int32(1024), int32(16), int32(16), int32(64), wayland.ShmFormatArgb8888)
	f.peer.Sync(10)
	return &f
}

func (f *shmFixture) commit(buffer uint32) {
	f.peer.Send(6, wayland.Surface, wayland.SurfaceAttach, wire.ObjectID(buffer), int32(0), int32(0))
	f.peer.Send(6, wayland.Surface, wayland.SurfaceCommit)
}

// resource returns the client's resource with the given ID. It must
// be called on the dispatch goroutine.
func (f *shmFixture) resource(t *testing.T, id uint32) *wl.Resource {
	t.Helper()

	r, ok := f.display.Clients()[0].Resource(id)
	assert.True(t, ok, "no object %v", id)
	return r
}

func countReleases(msgs []*wire.MessageBuffer, id uint32) (n int) {
	for _, msg := range msgs {
		if (msg.Sender() == id) && (msg.Op() == wayland.BufferEventRelease) {
			n++
		}
	}
	return n
}

func TestShmCommit(t *testing.T) {
	f := setupShm(t)

	f.commit(8)
	f.peer.Sync(11)

	call(t, f.display, func() {
		if !assert.Len(t, f.surfaces, 1) {
			return
		}
		b := f.surfaces[0].Buffer()
		if !assert.NotNil(t, b) {
			return
		}
		assert.Equal(t, wl.BufferShm, b.Kind())
		assert.Equal(t, 16, b.Size().X)
		assert.Equal(t, 16, b.Size().Y)
		assert.True(t, b.HasAlpha())
		assert.True(t, b.Committed())
		assert.Equal(t, 1, f.display.Buffers().Len())
	})

	f.commit(9)
	msgs := f.peer.Sync(12)
	assert.Equal(t, 1, countReleases(msgs, 8))
	assert.Zero(t, countReleases(msgs, 9))

	f.commit(9)
	f.peer.Send(6, wayland.Surface, wayland.SurfaceDestroy)
	msgs = f.peer.Sync(13)
	assert.Zero(t, countReleases(msgs, 8))
	assert.Equal(t, 1, countReleases(msgs, 9))

	call(t, f.display, func() { assert.Zero(t, f.display.Buffers().Len()) })
}

func TestShmAttachDestroyed(t *testing.T) {
	f := setupShm(t)

	f.peer.Send(6, wayland.Surface, wayland.SurfaceAttach, wire.ObjectID(8), int32(0), int32(0))
	f.peer.Send(8, wayland.Buffer, wayland.BufferDestroy)
	f.peer.Send(6, wayland.Surface, wayland.SurfaceCommit)
	f.peer.Sync(11)

	call(t, f.display, func() {
		assert.Nil(t, f.surfaces[0].Buffer())
	})
}

func TestGetBufferDedup(t *testing.T) {
	f := setupShm(t)

	call(t, f.display, func() {
		r := f.resource(t, 8)
		b1 := wl.GetBuffer(f.display, r)
		b2 := wl.GetBuffer(f.display, r)
		assert.Same(t, b1, b2)
		assert.Equal(t, 1, f.display.Buffers().Len())

		found, ok := f.display.Buffers().FromResource(r)
		assert.True(t, ok)
		assert.Same(t, b1, found)

		b1.Unref()
		assert.Equal(t, 1, f.display.Buffers().Len())
		b2.Unref()
		assert.Zero(t, f.display.Buffers().Len())
		assert.Panics(t, func() { b2.Unref() })

		r.Destroy()
		assert.Nil(t, wl.GetBuffer(f.display, r))
	})

	msgs := f.peer.Sync(11)
	assert.Zero(t, countReleases(msgs, 8), "uncommitted buffers are not released")
}

func TestShmAccessExclusive(t *testing.T) {
	f := setupShm(t)

	call(t, f.display, func() {
		b8 := wl.GetBuffer(f.display, f.resource(t, 8))
		b9 := wl.GetBuffer(f.display, f.resource(t, 9))
		defer b8.Unref()
		defer b9.Unref()

		img, ok := b8.ShmImage()
		if !assert.True(t, ok) {
			return
		}
		assert.Len(t, img.Bytes(), 1024)
		assert.Equal(t, 64, img.Stride())
		assert.Equal(t, 16, img.Bounds().Dx())

		_, ok = b9.ShmImage()
		assert.False(t, ok, "second buffer accessed while first is open")

		clone := img.Clone()
		img.Close()
		img.Close()
		assert.NotNil(t, f.display.Buffers().Accessing())

		_, ok = b9.ShmImage()
		assert.False(t, ok)

		snap, ok := clone.Snapshot()
		if assert.True(t, ok) {
			assert.Equal(t, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, snap.RGBAAt(3, 3))
		}
		clone.Close()

		assert.Nil(t, f.display.Buffers().Accessing())
		img9, ok := b9.ShmImage()
		if assert.True(t, ok) {
			img9.Close()
		}
	})
}

func TestEndShmAccessUnbalanced(t *testing.T) {
	display := wl.NewDisplay()
	assert.Panics(t, func() { display.Buffers().EndShmAccess() })
}

func TestShmPoolResize(t *testing.T) {
	f := setupShm(t)

	var img *wl.ShmImage
	call(t, f.display, func() {
		b := wl.GetBuffer(f.display, f.resource(t, 8))
		var ok bool
		img, ok = b.ShmImage()
		b.Unref()
		assert.True(t, ok)
	})
	require.NotNil(t, img)

	f.peer.Send(7, wayland.ShmPool, wayland.ShmPoolResize, int32(4096))
	f.peer.Sync(11)

	call(t, f.display, func() {
		assert.Len(t, img.Bytes(), 1024)
		img.Close()
		assert.Nil(t, img.Bytes())
	})

	f.peer.Send(7, wayland.ShmPool, wayland.ShmPoolResize, int32(1024))
	obj, code := f.peer.Error()
	assert.Equal(t, uint32(7), obj)
	assert.Equal(t, wayland.ShmErrorInvalidStride, code)
}

func TestShmCreateBufferErrors(t *testing.T) {
	tests := []struct {
		name                          string
		offset, width, height, stride int32
		format                        uint32
		code                          uint32
	}{
		{name: "Format", offset: 0, width: 16, height: 16, stride: 64, format: 0x12345678, code: wayland.ShmErrorInvalidFormat},
		{name: "Stride", offset: 0, width: 16, height: 16, stride: 8, format: wayland.ShmFormatArgb8888, code: wayland.ShmErrorInvalidStride},
		{name: "Bounds", offset: 1100, width: 16, height: 16, stride: 64, format: wayland.ShmFormatArgb8888, code: wayland.ShmErrorInvalidStride},
		{name: "Negative", offset: -1, width: 16, height: 16, stride: 64, format: wayland.ShmFormatArgb8888, code: wayland.ShmErrorInvalidStride},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := setupShm(t)

			f.peer.Send(7, wayland.ShmPool, wayland.ShmPoolCreateBuffer, wire.ObjectID(11), test.offset, test.width, test.height, test.stride, test.format)
			obj, code := f.peer.Error()
			assert.Equal(t, uint32(7), obj)
			assert.Equal(t, test.code, code)
		})
	}
}

func TestShmCreatePoolInvalidSize(t *testing.T) {
	display := wl.NewDisplay()
	wl.NewShm(display)
	wltest.Run(t, display)

	peer := wltest.Connect(t, display)
	globals := peer.Registry(2)
	peer.Bind(2, globals, wayland.Shm, 1, 4)
	peer.Send(4, wayland.Shm, wayland.ShmCreatePool, wire.ObjectID(5), wltest.Memfd(t, 16), int32(0))

	obj, code := peer.Error()
	assert.Equal(t, uint32(4), obj)
	assert.Equal(t, wayland.ShmErrorInvalidStride, code)
}
