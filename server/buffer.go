package wl

import (
	"image"

	"deedles.dev/wlkit/proto/wayland"
)

// BufferKind identifies what backs a Buffer's memory.
type BufferKind int

const (
	BufferUnknown BufferKind = iota
	BufferShm
	BufferDmabuf
	BufferExternal
)

func (k BufferKind) String() string {
	switch k {
	case BufferShm:
		return "shm"
	case BufferDmabuf:
		return "dmabuf"
	case BufferExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Buffer is a wl_buffer as used by the compositor. There is at most
// one Buffer per wl_buffer resource at a time. Buffers are reference
// counted, and the Buffer may outlive its resource.
type Buffer struct {
	display   *Display
	resource  *Resource
	refs      int
	committed bool
	kind      BufferKind
	size      image.Point
	alpha     bool
	shm       *ShmBuffer
	dmabuf    *DmabufBuffer
}

// GetBuffer returns the Buffer for the wl_buffer resource r, creating
// it if necessary. The caller receives a new reference and must call
// Unref when done with it. It returns nil if r is nil or has been
// destroyed.
func GetBuffer(display *Display, r *Resource) *Buffer {
	if !r.Alive() {
		return nil
	}

	if b, ok := display.buffers.FromResource(r); ok {
		b.Ref()
		return b
	}

	b := Buffer{
		display:  display,
		resource: r,
		refs:     1,
	}
	b.inspect()
	display.buffers.add(&b)
	return &b
}

func (b *Buffer) inspect() {
	switch data := b.resource.Data().(type) {
	case *ShmBuffer:
		b.kind = BufferShm
		b.shm = data
		b.size = image.Pt(int(data.width), int(data.height))
		b.alpha = data.format.HasAlpha()
		return

	case *DmabufBuffer:
		b.kind = BufferDmabuf
		b.dmabuf = data
		b.size = image.Pt(int(data.attrs.Width), int(data.attrs.Height))
		b.alpha = data.attrs.Format.HasAlpha()
		return
	}

	if q := b.display.querier; q != nil {
		size, alpha, ok := q.QueryBuffer(b.resource)
		if ok {
			b.kind = BufferExternal
			b.size = size
			b.alpha = alpha
		}
	}
}

// Ref adds a reference to the buffer.
func (b *Buffer) Ref() {
	if b.refs <= 0 {
		panic("wl: Ref of destroyed buffer")
	}
	b.refs++
}

// Unref removes a reference. When the last reference is removed the
// buffer is destroyed, and if it was ever committed and its resource
// still exists, the client is sent wl_buffer.release.
func (b *Buffer) Unref() {
	if b.refs <= 0 {
		panic("wl: Unref of destroyed buffer")
	}
	b.refs--
	if b.refs > 0 {
		return
	}

	b.display.buffers.remove(b)
	if b.committed && b.resource.Alive() {
		b.resource.Send(wayland.BufferEventRelease)
		b.resource.client.Flush()
	}
}

// Resource returns the buffer's wl_buffer resource. It may have been
// destroyed.
func (b *Buffer) Resource() *Resource {
	return b.resource
}

func (b *Buffer) Kind() BufferKind {
	return b.kind
}

// Size is the size of the buffer in pixels. It is zero if the buffer's
// kind is unknown.
func (b *Buffer) Size() image.Point {
	return b.size
}

// HasAlpha reports whether the buffer's format has an alpha channel.
func (b *Buffer) HasAlpha() bool {
	return b.alpha
}

// SetCommitted marks the buffer as having been used by a surface.
func (b *Buffer) SetCommitted() {
	b.committed = true
}

func (b *Buffer) Committed() bool {
	return b.committed
}

// Dmabuf returns the dmabuf backing the buffer, if any.
func (b *Buffer) Dmabuf() (*DmabufBuffer, bool) {
	return b.dmabuf, b.dmabuf != nil
}

// ShmImage opens CPU access to the buffer's memory. It fails if the
// buffer is not shm backed, if its resource has been destroyed, or if
// another buffer's memory is currently being accessed.
func (b *Buffer) ShmImage() (*ShmImage, bool) {
	if (b.shm == nil) || !b.resource.Alive() {
		return nil, false
	}
	if !b.display.buffers.BeginShmAccess(b.shm) {
		return nil, false
	}
	return newShmImage(b), true
}
