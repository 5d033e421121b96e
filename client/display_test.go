package wl_test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"testing"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/internal/wltest"
	"deedles.dev/wlkit/proto/wayland"
	srv "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *srv.Display
	surfaces []*srv.Surface
	seat     *srv.Seat

	display  *wl.Display
	registry *wl.Registry
}

// setup starts a server with a compositor, wl_shm and a seat with a
// pointer and a keyboard, and connects a client to it.
func setup(t *testing.T) *fixture {
	f := fixture{server: srv.NewDisplay()}
	comp := srv.NewCompositor(f.server)
	comp.OnSurface(func(s *srv.Surface) { f.surfaces = append(f.surfaces, s) })
	srv.NewShm(f.server)
	f.seat = srv.NewSeat(f.server, "seat0", wayland.SeatCapabilityPointer|wayland.SeatCapabilityKeyboard)
	wltest.Run(t, f.server)

	f.display = wl.NewDisplay(wltest.Dial(t, f.server))
	t.Cleanup(func() { f.display.Close() })

	f.registry = f.display.GetRegistry()
	f.roundTrip(t)
	return &f
}

func (f *fixture) roundTrip(t *testing.T) {
	t.Helper()
	wltest.RoundTrip(t, f.display)
}

// call runs fn on the server's dispatch goroutine.
func (f *fixture) call(t *testing.T, fn func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wltest.Timeout)
	defer cancel()
	require.NoError(t, f.server.Call(ctx, func() error {
		fn()
		return nil
	}))
}

func (f *fixture) bind(t *testing.T, iface *wire.Interface) (name, version uint32) {
	t.Helper()

	name, version, ok := f.registry.Find(iface)
	require.True(t, ok, "no %v global", iface.Name)
	return name, version
}

// resource returns the server's resource for p. It must be called on
// the dispatch goroutine.
func (f *fixture) resource(p *wl.Proxy) *srv.Resource {
	clients := f.server.Clients()
	if len(clients) != 1 {
		return nil
	}
	r, _ := clients[0].Resource(p.ID())
	return r
}

func TestRegistry(t *testing.T) {
	f := setup(t)

	globals := f.registry.Globals()
	var names []string
	for _, g := range globals {
		names = append(names, g.Name)
	}
	assert.ElementsMatch(t, []string{"wl_compositor", "wl_shm", "wl_seat"}, names)

	name, version, ok := f.registry.Find(wayland.Seat)
	require.True(t, ok)
	assert.Equal(t, wayland.Seat.Version, version)
	assert.True(t, globals[name].Is(wayland.Seat))

	var removed []uint32
	f.registry.GlobalRemove = func(name uint32) { removed = append(removed, name) }
	f.call(t, func() { f.seat.Destroy() })
	f.roundTrip(t)

	assert.Equal(t, []uint32{name}, removed)
	_, _, ok = f.registry.Find(wayland.Seat)
	assert.False(t, ok)
}

func TestSeat(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Seat)
	seat := wl.BindSeat(f.registry, name, 5)

	var (
		caps     uint32
		seatName string
	)
	seat.Capabilities = func(c uint32) { caps = c }
	seat.Name = func(n string) { seatName = n }
	f.roundTrip(t)

	assert.Equal(t, wayland.SeatCapabilityPointer|wayland.SeatCapabilityKeyboard, caps)
	assert.Equal(t, "seat0", seatName)

	f.call(t, func() { f.seat.SetCapabilities(wayland.SeatCapabilityKeyboard) })
	f.roundTrip(t)
	assert.Equal(t, wayland.SeatCapabilityKeyboard, caps)

	require.NoError(t, seat.Release())
	assert.ErrorIs(t, seat.Proxy().Request(wayland.SeatGetPointer, seat.Proxy()), wl.ErrProxyDestroyed)
	f.roundTrip(t)
}

func TestPointerEvents(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Compositor)
	comp := wl.BindCompositor(f.registry, name, 4)
	surface := comp.CreateSurface()

	name, _ = f.bind(t, wayland.Seat)
	seat := wl.BindSeat(f.registry, name, 5)
	pointer := seat.GetPointer()
	f.roundTrip(t)

	var (
		entered *wl.Surface
		x, y    wire.Fixed
		button  wl.PointerButton
		frames  int
	)
	pointer.Enter = func(serial uint32, s *wl.Surface, sx, sy wire.Fixed) { entered, x, y = s, sx, sy }
	pointer.Button = func(serial, time uint32, b wl.PointerButton, state uint32) {
		if state == wayland.PointerButtonStatePressed {
			button = b
		}
	}
	pointer.Frame = func() { frames++ }

	f.call(t, func() {
		r := f.resource(pointer.Proxy())
		if !assert.NotNil(t, r) {
			return
		}
		serial := f.server.NextSerial()
		assert.NoError(t, r.Send(wayland.PointerEventEnter, serial, f.resource(surface.Proxy()), wire.FixedInt(3), wire.FixedFloat(4.5)))
		assert.NoError(t, r.Send(wayland.PointerEventButton, f.server.NextSerial(), uint32(0), uint32(wl.PointerButtonLeft), wayland.PointerButtonStatePressed))
		assert.NoError(t, r.Send(wayland.PointerEventFrame))
	})
	f.roundTrip(t)

	assert.Same(t, surface, entered)
	assert.Equal(t, 3, x.Int())
	assert.Equal(t, 4.5, y.Float())
	assert.Equal(t, wl.PointerButtonLeft, button)
	assert.Equal(t, "left", button.String())
	assert.Equal(t, 1, frames)

	require.NoError(t, pointer.Release())
	f.roundTrip(t)
	f.call(t, func() { assert.Nil(t, f.resource(pointer.Proxy())) })
}

func TestKeyboardKeymap(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Seat)
	seat := wl.BindSeat(f.registry, name, 5)
	kb := seat.GetKeyboard()
	f.roundTrip(t)

	var (
		format uint32
		keymap []byte
		rate   int32
	)
	kb.Keymap = func(kf uint32, file *os.File, size uint32) {
		defer file.Close()
		format = kf
		keymap = make([]byte, size)
		_, err := file.ReadAt(keymap, 0)
		assert.NoError(t, err)
	}
	kb.RepeatInfo = func(r, delay int32) { rate = r }

	file := wltest.Memfd(t, 0)
	_, err := file.WriteString("xkb_keymap {};")
	require.NoError(t, err)

	f.call(t, func() {
		r := f.resource(kb.Proxy())
		if !assert.NotNil(t, r) {
			return
		}
		assert.NoError(t, r.Send(wayland.KeyboardEventKeymap, wayland.KeyboardKeymapFormatXkbV1, file, uint32(14)))
		assert.NoError(t, r.Send(wayland.KeyboardEventRepeatInfo, int32(25), int32(600)))
	})
	f.roundTrip(t)

	assert.Equal(t, wayland.KeyboardKeymapFormatXkbV1, format)
	assert.Equal(t, "xkb_keymap {};", string(keymap))
	assert.EqualValues(t, 25, rate)
}

func TestShmFormats(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Shm)
	shm := wl.BindShm(f.registry, name, 1)
	var announced []fourcc.Format
	shm.Format = func(format fourcc.Format) { announced = append(announced, format) }
	f.roundTrip(t)

	assert.Contains(t, shm.Formats(), fourcc.ARGB8888)
	assert.Contains(t, shm.Formats(), fourcc.XRGB8888)
	assert.Equal(t, shm.Formats(), announced)

	var verr wire.VersionError
	assert.ErrorAs(t, shm.Release(), &verr)
}

func TestImageBufferRelease(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Compositor)
	comp := wl.BindCompositor(f.registry, name, 4)
	surface := comp.CreateSurface()
	name, _ = f.bind(t, wayland.Shm)
	shm := wl.BindShm(f.registry, name, 1)

	first, err := wl.NewImageBuffer(shm, 8, 4)
	require.NoError(t, err)
	t.Cleanup(func() { first.Destroy() })
	second, err := wl.NewImageBuffer(shm, 8, 4)
	require.NoError(t, err)
	t.Cleanup(func() { second.Destroy() })

	red := color.NRGBA{R: 0xFF, A: 0xFF}
	draw.Draw(first.Image(), first.Bounds(), image.NewUniform(red), image.Point{}, draw.Src)

	var released int
	first.Buffer().Release = func() { released++ }

	surface.Attach(first.Buffer(), 0, 0)
	surface.Commit()
	f.roundTrip(t)

	f.call(t, func() {
		if !assert.Len(t, f.surfaces, 1) {
			return
		}
		b := f.surfaces[0].Buffer()
		if !assert.NotNil(t, b) {
			return
		}
		assert.Equal(t, image.Pt(8, 4), b.Size())

		img, ok := b.ShmImage()
		if !assert.True(t, ok) {
			return
		}
		defer img.Close()
		snap, ok := img.Snapshot()
		if assert.True(t, ok) {
			assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, snap.RGBAAt(3, 2))
		}
	})
	assert.Zero(t, released)

	surface.Attach(second.Buffer(), 0, 0)
	surface.Commit()
	f.roundTrip(t)
	assert.Equal(t, 1, released)

	require.NoError(t, first.Resize(16, 16))
	assert.Equal(t, int32(64), first.Stride())
	assert.Equal(t, image.Rect(0, 0, 16, 16), first.Image().Bounds())
	f.roundTrip(t)
	assert.Nil(t, f.display.Err())
}

func TestProtocolError(t *testing.T) {
	f := setup(t)

	var reported *wl.ProtocolError
	f.display.Error = func(err *wl.ProtocolError) { reported = err }

	name, _ := f.bind(t, wayland.Shm)
	shm := wl.BindShm(f.registry, name, 1)
	pool := shm.CreatePool(wltest.Memfd(t, 16), 0)
	require.NotNil(t, pool)

	ctx, cancel := context.WithTimeout(context.Background(), wltest.Timeout)
	defer cancel()
	err := f.display.RoundTrip(ctx)

	var perr *wl.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, shm.Proxy().ID(), perr.ObjectID)
	assert.Equal(t, "wl_shm", perr.Interface)
	assert.Equal(t, wayland.ShmErrorInvalidStride, perr.Code)
	assert.Same(t, perr, reported)
	assert.Same(t, perr, f.display.Err())

	assert.ErrorAs(t, f.display.Dispatch(ctx), &perr)
	assert.ErrorAs(t, f.display.DispatchPending(), &perr)
}

func TestDestroyedProxy(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Compositor)
	comp := wl.BindCompositor(f.registry, name, 4)
	surface := comp.CreateSurface()
	f.roundTrip(t)

	var entered int
	surface.Enter = func(*wl.Proxy) { entered++ }

	var r *srv.Resource
	f.call(t, func() { r = f.resource(surface.Proxy()) })
	require.NotNil(t, r)

	require.NoError(t, surface.Destroy())
	assert.False(t, surface.Proxy().Alive())
	assert.ErrorIs(t, surface.Commit(), wl.ErrProxyDestroyed)
	require.NoError(t, surface.Destroy())

	// Sent before the server has seen the destroy request, so it
	// reaches a proxy that has been destroyed but not yet deleted.
	f.call(t, func() { assert.NoError(t, r.Send(wayland.SurfaceEventEnter, r)) })
	f.roundTrip(t)
	assert.Zero(t, entered)

	_, ok := f.display.Object(surface.Proxy().ID())
	assert.False(t, ok)

	f.call(t, func() { assert.False(t, r.Alive()) })
	assert.Nil(t, f.display.Err())
}

func TestNilProxy(t *testing.T) {
	var p *wl.Proxy
	assert.Zero(t, p.ID())
	assert.False(t, p.Alive())
	assert.Equal(t, "nil", p.String())
	assert.NoError(t, p.Destroy())
	assert.ErrorIs(t, p.Request(0), wl.ErrNilProxy)

	var s *wl.Surface
	assert.Nil(t, s.Proxy())
}

func TestFrameCallback(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Compositor)
	comp := wl.BindCompositor(f.registry, name, 4)
	surface := comp.CreateSurface()

	var done []uint32
	surface.Frame(func(time uint32) { done = append(done, time) })
	surface.Commit()
	f.roundTrip(t)
	assert.Empty(t, done)

	f.call(t, func() {
		if assert.Len(t, f.surfaces, 1) {
			f.surfaces[0].SendFrameDone(42)
		}
	})
	f.roundTrip(t)
	assert.Equal(t, []uint32{42}, done)
}

func TestCursor(t *testing.T) {
	f := setup(t)

	name, _ := f.bind(t, wayland.Compositor)
	comp := wl.BindCompositor(f.registry, name, 4)
	name, _ = f.bind(t, wayland.Shm)
	shm := wl.BindShm(f.registry, name, 1)
	name, _ = f.bind(t, wayland.Seat)
	seat := wl.BindSeat(f.registry, name, 5)
	pointer := seat.GetPointer()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 6))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{B: 0xFF, A: 0xFF}), image.Point{}, draw.Src)

	cursor, err := wl.NewCursor(comp, shm, img, image.Pt(1, 2))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1, 2), cursor.Hotspot())
	require.NoError(t, cursor.Set(pointer, 1))
	f.roundTrip(t)
	assert.Nil(t, f.display.Err())

	f.call(t, func() {
		if !assert.Len(t, f.surfaces, 1) {
			return
		}
		b := f.surfaces[0].Buffer()
		if !assert.NotNil(t, b) {
			return
		}
		assert.Equal(t, image.Pt(4, 6), b.Size())

		simg, ok := b.ShmImage()
		if !assert.True(t, ok) {
			return
		}
		defer simg.Close()
		snap, ok := simg.Snapshot()
		if assert.True(t, ok) {
			assert.Equal(t, color.RGBA{B: 0xFF, A: 0xFF}, snap.RGBAAt(3, 5))
		}
	})

	require.NoError(t, cursor.Destroy())
	f.roundTrip(t)
	assert.Nil(t, f.display.Err())
}
