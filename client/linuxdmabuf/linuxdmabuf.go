// Package linuxdmabuf implements the client side of
// linux-dmabuf-unstable-v1.
package linuxdmabuf

import (
	"os"
	"slices"

	wl "deedles.dev/wlkit/client"
	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/linuxdmabuf"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
	"golang.org/x/exp/maps"
)

// Dmabuf is a zwp_linux_dmabuf_v1. It collects the formats and
// modifiers that the server advertises when it is bound.
type Dmabuf struct {
	Format   func(format fourcc.Format)
	Modifier func(format fourcc.Format, modifier uint64)

	proxy   *wl.Proxy
	formats map[fourcc.Format][]uint64
}

// Bind binds the zwp_linux_dmabuf_v1 global with the given name.
func Bind(registry *wl.Registry, name, version uint32) *Dmabuf {
	d := Dmabuf{formats: make(map[fourcc.Format][]uint64)}
	d.proxy = registry.Bind(name, linuxdmabuf.Dmabuf, version, wl.EventFunc(d.event))
	d.proxy.SetData(&d)
	return &d
}

func (d *Dmabuf) Proxy() *wl.Proxy {
	return d.proxy
}

// Formats returns the advertised formats and, for version 3 and
// later, the modifiers advertised for each.
func (d *Dmabuf) Formats() map[fourcc.Format][]uint64 {
	formats := maps.Clone(d.formats)
	for f, mods := range formats {
		formats[f] = slices.Clone(mods)
	}
	return formats
}

func (d *Dmabuf) CreateParams() *Params {
	p := Params{dmabuf: d}
	p.proxy = wl.NewProxy(d.proxy.Display(), linuxdmabuf.BufferParams, d.proxy.Version(), wl.EventFunc(p.event))
	p.proxy.SetData(&p)
	d.proxy.Request(linuxdmabuf.DmabufCreateParams, p.proxy)
	return &p
}

func (d *Dmabuf) Destroy() error {
	return d.proxy.Destroy()
}

func (d *Dmabuf) event(p *wl.Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case linuxdmabuf.DmabufEventFormat:
		format := fourcc.Format(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}

		if _, ok := d.formats[format]; !ok {
			d.formats[format] = nil
		}
		if d.Format != nil {
			d.Format(format)
		}
		return nil

	case linuxdmabuf.DmabufEventModifier:
		format := fourcc.Format(msg.ReadUint())
		hi, lo := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		mod := uint64(hi)<<32 | uint64(lo)
		d.formats[format] = append(d.formats[format], mod)
		if d.Modifier != nil {
			d.Modifier(format, mod)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.Interface().Name, Type: "event", Op: op}
	}
}

// Params is a zwp_linux_buffer_params_v1. It can be used to create
// one buffer.
type Params struct {
	// Created is called with the new buffer after a successful Create.
	Created func(buf *wl.Buffer)

	// Failed is called if the server could not import the buffer
	// requested by Create.
	Failed func()

	dmabuf *Dmabuf
	proxy  *wl.Proxy
}

func (p *Params) Proxy() *wl.Proxy {
	return p.proxy
}

// Add adds a plane. The file is duplicated when the request is
// queued, so the caller keeps ownership of it.
func (p *Params) Add(file *os.File, plane, offset, stride uint32, modifier uint64) error {
	return p.proxy.Request(
		linuxdmabuf.BufferParamsAdd,
		file,
		plane,
		offset,
		stride,
		uint32(modifier>>32),
		uint32(modifier),
	)
}

// Create asks the server to import the buffer. The result is reported
// through Created or Failed.
func (p *Params) Create(width, height int32, format fourcc.Format, flags uint32) error {
	return p.proxy.Request(linuxdmabuf.BufferParamsCreate, width, height, uint32(format), flags)
}

// CreateImmed creates the buffer without waiting for the server. If
// the import fails, the server either sends Failed or treats it as a
// fatal error. It requires version 2.
func (p *Params) CreateImmed(width, height int32, format fourcc.Format, flags uint32) (*wl.Buffer, error) {
	proxy := wl.NewProxy(p.proxy.Display(), wayland.Buffer, 1, nil)
	err := p.proxy.Request(linuxdmabuf.BufferParamsCreateImmed, proxy, width, height, uint32(format), flags)
	if err != nil {
		proxy.Forget()
		return nil, err
	}
	return wl.WrapBuffer(proxy), nil
}

func (p *Params) Destroy() error {
	return p.proxy.Destroy()
}

func (p *Params) event(proxy *wl.Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case linuxdmabuf.BufferParamsEventCreated:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		bp, err := wl.NewServerProxy(proxy.Display(), uint32(id), wayland.Buffer, 1, nil)
		if err != nil {
			return err
		}
		buf := wl.WrapBuffer(bp)
		if p.Created != nil {
			p.Created(buf)
		}
		return nil

	case linuxdmabuf.BufferParamsEventFailed:
		if p.Failed != nil {
			p.Failed()
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: proxy.Interface().Name, Type: "event", Op: op}
	}
}
