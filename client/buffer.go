package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Buffer is a wl_buffer.
type Buffer struct {
	// Release is called when the compositor no longer reads from the
	// buffer.
	Release func()

	proxy *Proxy
}

func newBuffer(display *Display) *Buffer {
	var buf Buffer
	buf.proxy = NewProxy(display, wayland.Buffer, 1, EventFunc(buf.event))
	buf.proxy.SetData(&buf)
	return &buf
}

// WrapBuffer wraps a proxy for a wl_buffer created by an extension,
// such as linux-dmabuf.
func WrapBuffer(p *Proxy) *Buffer {
	buf := Buffer{proxy: p}
	p.SetData(&buf)
	p.SetHandler(EventFunc(buf.event))
	return &buf
}

func (buf *Buffer) Proxy() *Proxy {
	if buf == nil {
		return nil
	}
	return buf.proxy
}

func (buf *Buffer) Destroy() error {
	return buf.proxy.Destroy()
}

func (buf *Buffer) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.BufferEventRelease:
		if buf.Release != nil {
			buf.Release()
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}
