package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Compositor is a wl_compositor.
type Compositor struct {
	proxy *Proxy
}

// BindCompositor binds the wl_compositor global with the given name.
func BindCompositor(registry *Registry, name, version uint32) *Compositor {
	var c Compositor
	c.proxy = registry.Bind(name, wayland.Compositor, version, nil)
	c.proxy.SetData(&c)
	return &c
}

func (c *Compositor) Proxy() *Proxy {
	return c.proxy
}

func (c *Compositor) CreateSurface() *Surface {
	s := Surface{display: c.proxy.display}
	s.proxy = NewProxy(c.proxy.display, wayland.Surface, c.proxy.version, EventFunc(s.event))
	s.proxy.SetData(&s)
	c.proxy.Request(wayland.CompositorCreateSurface, s.proxy)
	return &s
}

func (c *Compositor) CreateRegion() *Region {
	var r Region
	r.proxy = NewProxy(c.proxy.display, wayland.Region, 1, nil)
	r.proxy.SetData(&r)
	c.proxy.Request(wayland.CompositorCreateRegion, r.proxy)
	return &r
}

// Surface is a wl_surface.
type Surface struct {
	Enter                    func(output *Proxy)
	Leave                    func(output *Proxy)
	PreferredBufferScale     func(factor int32)
	PreferredBufferTransform func(transform uint32)

	proxy   *Proxy
	display *Display
}

// SurfaceFromProxy returns the Surface wrapping p, if any.
func SurfaceFromProxy(p *Proxy) (*Surface, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.data.(*Surface)
	return s, ok
}

func (s *Surface) Proxy() *Proxy {
	if s == nil {
		return nil
	}
	return s.proxy
}

func (s *Surface) Destroy() error {
	return s.proxy.Destroy()
}

// Attach sets the buffer to be shown after the next commit. A nil
// buffer removes the surface's content.
func (s *Surface) Attach(buf *Buffer, x, y int32) error {
	return s.proxy.Request(wayland.SurfaceAttach, buf.Proxy(), x, y)
}

func (s *Surface) Damage(x, y, width, height int32) error {
	return s.proxy.Request(wayland.SurfaceDamage, x, y, width, height)
}

func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	return s.proxy.Request(wayland.SurfaceDamageBuffer, x, y, width, height)
}

// Frame requests a callback for when the compositor next wants a new
// frame.
func (s *Surface) Frame(done func(time uint32)) *Callback {
	cb := newCallback(s.display, done)
	s.proxy.Request(wayland.SurfaceFrame, cb.proxy)
	return cb
}

func (s *Surface) SetOpaqueRegion(r *Region) error {
	return s.proxy.Request(wayland.SurfaceSetOpaqueRegion, r.Proxy())
}

func (s *Surface) SetInputRegion(r *Region) error {
	return s.proxy.Request(wayland.SurfaceSetInputRegion, r.Proxy())
}

func (s *Surface) Commit() error {
	return s.proxy.Request(wayland.SurfaceCommit)
}

func (s *Surface) SetBufferTransform(transform int32) error {
	return s.proxy.Request(wayland.SurfaceSetBufferTransform, transform)
}

func (s *Surface) SetBufferScale(scale int32) error {
	return s.proxy.Request(wayland.SurfaceSetBufferScale, scale)
}

func (s *Surface) Offset(x, y int32) error {
	return s.proxy.Request(wayland.SurfaceOffset, x, y)
}

func (s *Surface) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.SurfaceEventEnter, wayland.SurfaceEventLeave:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		output, _ := s.display.Object(uint32(id))

		f := s.Enter
		if op == wayland.SurfaceEventLeave {
			f = s.Leave
		}
		if f != nil {
			f(output)
		}
		return nil

	case wayland.SurfaceEventPreferredBufferScale:
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.PreferredBufferScale != nil {
			s.PreferredBufferScale(factor)
		}
		return nil

	case wayland.SurfaceEventPreferredBufferTransform:
		transform := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if s.PreferredBufferTransform != nil {
			s.PreferredBufferTransform(transform)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}

// Region is a wl_region.
type Region struct {
	proxy *Proxy
}

func (r *Region) Proxy() *Proxy {
	if r == nil {
		return nil
	}
	return r.proxy
}

func (r *Region) Add(x, y, width, height int32) error {
	return r.proxy.Request(wayland.RegionAdd, x, y, width, height)
}

func (r *Region) Subtract(x, y, width, height int32) error {
	return r.proxy.Request(wayland.RegionSubtract, x, y, width, height)
}

func (r *Region) Destroy() error {
	return r.proxy.Destroy()
}
