package wl

import (
	"image"
	"image/color"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/ximage"
	"golang.org/x/image/draw"
)

// ShmImage is an open CPU access window onto a shm buffer's memory.
// The memory stays mapped, and the pool's size fixed, until Close is
// called. Only one buffer may be open at a time, so images should be
// closed as soon as they are no longer needed.
type ShmImage struct {
	buffer *Buffer
	shm    *ShmBuffer
	closed bool
}

func newShmImage(b *Buffer) *ShmImage {
	b.Ref()
	b.shm.pool.access++
	return &ShmImage{buffer: b, shm: b.shm}
}

// Clone opens another view of the same buffer. Each view must be
// closed separately.
func (img *ShmImage) Clone() *ShmImage {
	if img.closed {
		panic("wl: Clone of closed ShmImage")
	}
	if !img.buffer.display.buffers.BeginShmAccess(img.shm) {
		panic("wl: shm access to open buffer refused")
	}
	return newShmImage(img.buffer)
}

// Close ends the access. It is safe to call more than once.
func (img *ShmImage) Close() {
	if img.closed {
		return
	}
	img.closed = true

	img.shm.pool.endAccess()
	img.buffer.display.buffers.EndShmAccess()
	img.buffer.Unref()
}

// Buffer returns the buffer that the image views.
func (img *ShmImage) Buffer() *Buffer {
	return img.buffer
}

// Bounds returns the size of the image in pixels.
func (img *ShmImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(img.shm.width), int(img.shm.height))
}

func (img *ShmImage) Stride() int {
	return int(img.shm.stride)
}

func (img *ShmImage) Format() fourcc.Format {
	return img.shm.format
}

// Bytes returns the buffer's memory. The slice must not be used after
// the image is closed.
func (img *ShmImage) Bytes() []byte {
	if img.closed {
		return nil
	}

	start := int(img.shm.offset)
	end := start + int(img.shm.stride)*int(img.shm.height)
	return img.shm.pool.data[start:end:end]
}

// Image returns a view of the buffer as an image. Only 32-bit ARGB
// and XRGB buffers whose stride is a whole number of pixels can be
// viewed. For XRGB buffers, the alpha channel of the view is
// meaningless. The image's bounds span the full stride.
func (img *ShmImage) Image() (draw.Image, bool) {
	switch img.shm.format {
	case fourcc.ARGB8888, fourcc.XRGB8888:
	default:
		return nil, false
	}
	if img.closed || (img.shm.stride%4 != 0) {
		return nil, false
	}

	return &ximage.FormatImage{
		Format: ximage.ARGB8888,
		Rect:   image.Rect(0, 0, int(img.shm.stride/4), int(img.shm.height)),
		Pix:    img.Bytes(),
	}, true
}

// Snapshot copies the buffer's contents into a new image. It returns
// false if the buffer can not be viewed or if its memory became
// inaccessible, such as by the client shrinking the pool's file.
func (img *ShmImage) Snapshot() (dst *image.RGBA, ok bool) {
	src, ok := img.Image()
	if !ok {
		return nil, false
	}

	defer func() {
		if recover() != nil {
			dst, ok = nil, false
		}
	}()

	bounds := img.Bounds()
	dst = image.NewRGBA(bounds)
	draw.Copy(dst, image.Point{}, src, bounds, draw.Src, nil)

	if !img.shm.format.HasAlpha() {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := dst.RGBAAt(x, y)
				dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
			}
		}
	}

	return dst, true
}
