package wl

import (
	"fmt"
	"math"
	"slices"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/shm"
	"deedles.dev/wlkit/wire"
	"golang.org/x/sys/unix"
)

// Shm is the wl_shm global.
type Shm struct {
	global  *Global
	formats []fourcc.Format
}

// NewShm creates a wl_shm global. ARGB8888 and XRGB8888 are always
// supported. Any extra formats are advertised as well.
func NewShm(display *Display, extra ...fourcc.Format) *Shm {
	s := Shm{
		formats: []fourcc.Format{fourcc.ARGB8888, fourcc.XRGB8888},
	}
	for _, f := range extra {
		if !slices.Contains(s.formats, f) {
			s.formats = append(s.formats, f)
		}
	}

	s.global = NewGlobal(display, wayland.Shm, wayland.Shm.Version, &s)
	s.global.SetData(&s)
	return &s
}

func (s *Shm) Global() *Global {
	return s.global
}

// Formats returns the supported formats.
func (s *Shm) Formats() []fourcc.Format {
	return slices.Clone(s.formats)
}

func (s *Shm) Bind(b *Bind) (Implementation, error) {
	for _, f := range s.formats {
		b.Send(wayland.ShmEventFormat, fourcc.ToShm(f))
	}
	return ImplementationFunc(s.request), nil
}

func (s *Shm) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.ShmCreatePool:
		id := msg.ReadObject()
		file := msg.ReadFile()
		size := msg.ReadInt()
		if file != nil {
			defer file.Close()
		}
		if err := msg.Err(); err != nil {
			return err
		}

		if size <= 0 {
			return r.Errorf(wayland.ShmErrorInvalidStride, "invalid size (%v)", size)
		}

		data, err := shm.MapShared(file, int(size), unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return r.Errorf(wayland.ShmErrorInvalidFD, "failed mmap fd %v: %v", file.Fd(), err)
		}

		pool := shmPool{shm: s, data: data, refs: 1}
		res, err := NewResource(r.client, wayland.ShmPool, r.version, uint32(id), ImplementationFunc(pool.request))
		if err != nil {
			data.Unmap()
			return err
		}
		pool.resource = res
		res.SetData(&pool)
		res.OnDestroy(func(*Resource) { pool.unref() })
		return nil

	case wayland.ShmRelease:
		return nil

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}

func (s *Shm) supports(format uint32) (fourcc.Format, bool) {
	f := fourcc.FromShm(format)
	return f, slices.Contains(s.formats, f)
}

type shmPool struct {
	shm      *Shm
	resource *Resource
	data     shm.Mmap
	refs     int
	access   int
	resize   int32
}

func (pool *shmPool) request(r *Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.ShmPoolCreateBuffer:
		id := msg.ReadObject()
		offset := msg.ReadInt()
		width := msg.ReadInt()
		height := msg.ReadInt()
		stride := msg.ReadInt()
		format := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		f, ok := pool.shm.supports(format)
		if !ok {
			return r.Errorf(wayland.ShmErrorInvalidFormat, "invalid format 0x%x", format)
		}

		if (offset < 0) || (width <= 0) || (height <= 0) || (stride < width) ||
			(math.MaxInt32/stride < height) || (int64(offset) > int64(pool.size())-int64(stride)*int64(height)) {
			return r.Errorf(wayland.ShmErrorInvalidStride, "invalid width, height or stride (%vx%v, %v)", width, height, stride)
		}

		buf := ShmBuffer{
			pool:   pool,
			offset: offset,
			width:  width,
			height: height,
			stride: stride,
			format: f,
		}
		res, err := NewResource(r.client, wayland.Buffer, 1, uint32(id), nil)
		if err != nil {
			return err
		}
		buf.resource = res
		res.SetData(&buf)

		pool.refs++
		res.OnDestroy(func(*Resource) { pool.unref() })
		return nil

	case wayland.ShmPoolDestroy:
		return nil

	case wayland.ShmPoolResize:
		size := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		if size < pool.size() {
			return r.Errorf(wayland.ShmErrorInvalidStride, "shrinking pool invalid")
		}
		if pool.access > 0 {
			pool.resize = size
			return nil
		}
		return pool.remap(size)

	default:
		return wire.UnknownOpError{Interface: r.iface.Name, Type: "request", Op: op}
	}
}

func (pool *shmPool) size() int32 {
	return int32(len(pool.data))
}

func (pool *shmPool) remap(size int32) error {
	if size == pool.size() {
		return nil
	}

	data, err := unix.Mremap(pool.data, int(size), unix.MREMAP_MAYMOVE)
	if err != nil {
		return fmt.Errorf("remap pool: %w", err)
	}
	pool.data = data
	return nil
}

func (pool *shmPool) endAccess() {
	pool.access--
	if (pool.access > 0) || (pool.resize == 0) {
		pool.unrefCheck()
		return
	}

	size := pool.resize
	pool.resize = 0
	if err := pool.remap(size); err != nil {
		pool.resource.client.PostImplementationError("%v", err)
	}
	pool.unrefCheck()
}

func (pool *shmPool) unref() {
	pool.refs--
	pool.unrefCheck()
}

func (pool *shmPool) unrefCheck() {
	if (pool.refs > 0) || (pool.access > 0) || (pool.data == nil) {
		return
	}

	pool.data.Unmap()
	pool.data = nil
}

// ShmBuffer is the data behind a wl_buffer created from a wl_shm_pool.
type ShmBuffer struct {
	resource *Resource
	pool     *shmPool
	offset   int32
	width    int32
	height   int32
	stride   int32
	format   fourcc.Format
}

// ShmBufferFromResource returns the shm buffer behind r, if r is one.
func ShmBufferFromResource(r *Resource) (*ShmBuffer, bool) {
	buf, ok := r.Data().(*ShmBuffer)
	return buf, ok
}

func (buf *ShmBuffer) Resource() *Resource {
	return buf.resource
}

func (buf *ShmBuffer) Width() int32 {
	return buf.width
}

func (buf *ShmBuffer) Height() int32 {
	return buf.height
}

func (buf *ShmBuffer) Stride() int32 {
	return buf.stride
}

func (buf *ShmBuffer) Offset() int32 {
	return buf.offset
}

func (buf *ShmBuffer) Format() fourcc.Format {
	return buf.format
}
