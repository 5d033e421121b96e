package wl

import (
	"image"

	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Compositor is the wl_compositor global.
type Compositor struct {
	global *Global

	onSurface Signal[*Surface]
}

// NewCompositor creates a wl_compositor global.
func NewCompositor(display *Display) *Compositor {
	var c Compositor
	c.global = NewGlobal(display, wayland.Compositor, 4, &c)
	c.global.SetData(&c)
	return &c
}

func (c *Compositor) Global() *Global {
	return c.global
}

// OnSurface registers f to be called for every new surface.
func (c *Compositor) OnSurface(f func(*Surface)) *Listener[*Surface] {
	return c.onSurface.Add(f)
}

func (c *Compositor) Bind(b *Bind) (Implementation, error) {
	return ImplementationFunc(c.request), nil
}

func (c *Compositor) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	switch op {
	case wayland.CompositorCreateSurface:
		s := Surface{display: c.global.display, scale: 1}
		res, err := NewResource(r.client, wayland.Surface, r.version, uint32(id), ImplementationFunc(s.request))
		if err != nil {
			return err
		}
		s.resource = res
		res.SetData(&s)
		res.OnDestroy(func(*Resource) { s.destroy() })

		c.onSurface.Emit(&s)
		return nil

	case wayland.CompositorCreateRegion:
		var reg Region
		res, err := NewResource(r.client, wayland.Region, 1, uint32(id), ImplementationFunc(reg.request))
		if err != nil {
			return err
		}
		res.SetData(&reg)
		return nil

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}

type surfaceState struct {
	attached  bool
	buffer    *Resource
	bufferLis *Listener[*Resource]
	offset    image.Point
	damage    []image.Rectangle
	frames    []*Resource
	opaque    *Region
	input     *Region
	transform int32
	scale     int32
}

// Surface is a wl_surface. Its committed buffer is held as a
// reference to a Buffer, which is released when a new buffer is
// committed or the surface is destroyed.
type Surface struct {
	display  *Display
	resource *Resource
	pending  surfaceState
	buffer   *Buffer
	frames   []*Resource
	offset   image.Point
	damage   []image.Rectangle
	opaque   *Region
	input    *Region

	transform int32
	scale     int32

	onCommit Signal[*Surface]
}

// SurfaceFromResource returns the surface behind a wl_surface
// resource.
func SurfaceFromResource(r *Resource) (*Surface, bool) {
	s, ok := r.Data().(*Surface)
	return s, ok
}

func (s *Surface) Resource() *Resource {
	return s.resource
}

// Buffer returns the currently committed buffer, if any. No reference
// is added.
func (s *Surface) Buffer() *Buffer {
	return s.buffer
}

// Damage returns the damage accumulated by the last commit, in
// surface coordinates.
func (s *Surface) Damage() []image.Rectangle {
	return s.damage
}

// Offset is the accumulated offset of the buffer's origin.
func (s *Surface) Offset() image.Point {
	return s.offset
}

func (s *Surface) Scale() int32 {
	return s.scale
}

func (s *Surface) Transform() int32 {
	return s.transform
}

// OpaqueRegion and InputRegion return the committed regions. nil
// means the default of the protocol, empty for the opaque region and
// infinite for the input region.
func (s *Surface) OpaqueRegion() *Region {
	return s.opaque
}

func (s *Surface) InputRegion() *Region {
	return s.input
}

// OnCommit registers f to be called after every commit.
func (s *Surface) OnCommit(f func(*Surface)) *Listener[*Surface] {
	return s.onCommit.Add(f)
}

// SendFrameDone sends done to every committed frame callback.
func (s *Surface) SendFrameDone(time uint32) {
	frames := s.frames
	s.frames = nil
	for _, cb := range frames {
		cb.Send(wayland.CallbackEventDone, time)
	}
}

func (s *Surface) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.SurfaceDestroy:
		return nil

	case wayland.SurfaceAttach:
		id := msg.ReadObject()
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		buf, err := r.client.ResolveObject(id, wayland.Buffer)
		if err != nil {
			return err
		}
		if (r.version >= 5) && ((x != 0) || (y != 0)) {
			return r.Errorf(wayland.SurfaceErrorInvalidOffset, "attach offset (%v, %v) is not allowed, use offset", x, y)
		}
		s.attach(buf)
		s.pending.offset = s.pending.offset.Add(image.Pt(int(x), int(y)))
		return nil

	case wayland.SurfaceDamage, wayland.SurfaceDamageBuffer:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.pending.damage = append(s.pending.damage, image.Rect(int(x), int(y), int(x+w), int(y+h)))
		return nil

	case wayland.SurfaceFrame:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		cb, err := NewResource(r.client, wayland.Callback, 1, uint32(id), nil)
		if err != nil {
			return err
		}
		s.pending.frames = append(s.pending.frames, cb)
		return nil

	case wayland.SurfaceSetOpaqueRegion, wayland.SurfaceSetInputRegion:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		res, err := r.client.ResolveObject(id, wayland.Region)
		if err != nil {
			return err
		}

		var reg *Region
		if res != nil {
			reg = res.Data().(*Region).clone()
		}
		if op == wayland.SurfaceSetOpaqueRegion {
			s.pending.opaque = reg
		} else {
			s.pending.input = reg
		}
		return nil

	case wayland.SurfaceCommit:
		s.commit()
		return nil

	case wayland.SurfaceSetBufferTransform:
		t := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if (t < 0) || (t > 7) {
			return r.Errorf(wayland.SurfaceErrorInvalidTransform, "buffer transform value %v is invalid", t)
		}
		s.pending.transform = t
		return nil

	case wayland.SurfaceSetBufferScale:
		scale := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if scale < 1 {
			return r.Errorf(wayland.SurfaceErrorInvalidScale, "buffer scale value %v is invalid", scale)
		}
		s.pending.scale = scale
		return nil

	case wayland.SurfaceOffset:
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.pending.offset = s.pending.offset.Add(image.Pt(int(x), int(y)))
		return nil

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}

// attach sets the pending buffer. If the buffer's resource is
// destroyed before the next commit, the commit attaches nothing.
func (s *Surface) attach(buf *Resource) {
	s.pending.bufferLis.Remove()
	s.pending.bufferLis = nil

	s.pending.attached = true
	s.pending.buffer = buf
	if buf != nil {
		s.pending.bufferLis = buf.OnDestroy(func(*Resource) {
			s.pending.buffer = nil
			s.pending.bufferLis = nil
		})
	}
}

func (s *Surface) commit() {
	pending := s.pending
	s.pending = surfaceState{}
	pending.bufferLis.Remove()

	if pending.attached {
		var next *Buffer
		if pending.buffer != nil {
			next = GetBuffer(s.display, pending.buffer)
			if next != nil {
				next.SetCommitted()
			}
		}

		prev := s.buffer
		s.buffer = next
		if prev != nil {
			prev.Unref()
		}
	}

	s.offset = s.offset.Add(pending.offset)
	s.damage = pending.damage
	s.frames = append(s.frames, pending.frames...)
	if pending.opaque != nil {
		s.opaque = pending.opaque
	}
	if pending.input != nil {
		s.input = pending.input
	}
	if pending.transform != 0 {
		s.transform = pending.transform
	}
	if pending.scale != 0 {
		s.scale = pending.scale
	}

	s.onCommit.Emit(s)
}

func (s *Surface) destroy() {
	s.pending.bufferLis.Remove()
	for _, cb := range s.pending.frames {
		cb.Destroy()
	}
	s.pending = surfaceState{}

	if s.buffer != nil {
		s.buffer.Unref()
		s.buffer = nil
	}
	for _, cb := range s.frames {
		cb.Destroy()
	}
	s.frames = nil
}

type regionOp struct {
	rect image.Rectangle
	add  bool
}

// Region is a wl_region. It is kept as the list of operations that
// built it.
type Region struct {
	ops []regionOp
}

// Contains reports whether p is inside the region.
func (reg *Region) Contains(p image.Point) bool {
	var in bool
	for _, op := range reg.ops {
		if p.In(op.rect) {
			in = op.add
		}
	}
	return in
}

// Bounds returns the smallest rectangle containing every added
// rectangle.
func (reg *Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, op := range reg.ops {
		if op.add {
			b = b.Union(op.rect)
		}
	}
	return b
}

func (reg *Region) clone() *Region {
	return &Region{ops: append([]regionOp(nil), reg.ops...)}
}

func (reg *Region) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.RegionDestroy:
		return nil

	case wayland.RegionAdd, wayland.RegionSubtract:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		reg.ops = append(reg.ops, regionOp{
			rect: image.Rect(int(x), int(y), int(x+w), int(y+h)),
			add:  op == wayland.RegionAdd,
		})
		return nil

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}
