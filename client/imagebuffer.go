package wl

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/shm"
	"deedles.dev/ximage"
	"golang.org/x/sys/unix"
)

// ImageBuffer is an ARGB8888 wl_buffer backed by a private shared
// memory pool that can be drawn into directly.
type ImageBuffer struct {
	w, h int32
	shm  *Shm
	pool *ShmPool
	buf  *Buffer
	file *os.File
	mmap shm.Mmap
}

func NewImageBuffer(s *Shm, w, h int32) (buf *ImageBuffer, err error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid image buffer size %vx%v", w, h)
	}

	buf = &ImageBuffer{
		w:   w,
		h:   h,
		shm: s,
	}
	defer func() {
		if err != nil {
			buf.Destroy()
		}
	}()

	file, err := shm.Create()
	if err != nil {
		return nil, fmt.Errorf("create SHM file: %w", err)
	}
	buf.file = file
	err = file.Truncate(int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("truncate SHM file: %w", err)
	}

	mmap, err := shm.MapShared(file, int(buf.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return nil, fmt.Errorf("mmap SHM file: %w", err)
	}
	buf.mmap = mmap

	buf.pool = s.CreatePool(file, buf.Len())
	buf.buf = buf.pool.CreateBuffer(0, w, h, buf.Stride(), fourcc.ARGB8888)

	return buf, nil
}

func (s *ImageBuffer) Destroy() error {
	var errs []error
	if s.buf != nil {
		errs = append(errs, s.buf.Destroy())
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Destroy())
	}
	if s.mmap != nil {
		errs = append(errs, s.mmap.Unmap())
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
	}
	return errors.Join(errs...)
}

func (s *ImageBuffer) Shm() *Shm {
	return s.shm
}

func (s *ImageBuffer) ShmPool() *ShmPool {
	return s.pool
}

func (s *ImageBuffer) Buffer() *Buffer {
	return s.buf
}

func (s *ImageBuffer) Stride() int32 {
	return s.w * 4
}

func (s *ImageBuffer) Len() int32 {
	return s.Stride() * s.h
}

func (s *ImageBuffer) Cap() int32 {
	return int32(cap(s.mmap))
}

func (s *ImageBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(s.w), int(s.h))
}

// Resize replaces the underlying wl_buffer with one of the new size,
// growing the pool if necessary. Pools never shrink.
func (s *ImageBuffer) Resize(w, h int32) error {
	if (w == s.w) && (h == s.h) {
		return nil
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid image buffer size %vx%v", w, h)
	}

	s.w = w
	s.h = h
	if s.Len() <= s.Cap() {
		s.mmap = s.mmap[:s.Len()]
		s.buf.Destroy()
		s.buf = s.pool.CreateBuffer(0, s.w, s.h, s.Stride(), fourcc.ARGB8888)
		return nil
	}

	err := s.file.Truncate(int64(s.Len()))
	if err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	err = s.mmap.Unmap()
	if err != nil {
		return fmt.Errorf("unmap: %w", err)
	}
	mmap, err := shm.MapShared(s.file, int(s.Len()), unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		s.mmap = nil
		return fmt.Errorf("mmap: %w", err)
	}
	s.mmap = mmap

	s.buf.Destroy()
	s.pool.Resize(s.Len())
	s.buf = s.pool.CreateBuffer(0, s.w, s.h, s.Stride(), fourcc.ARGB8888)

	return nil
}

func (s *ImageBuffer) Image() draw.Image {
	return &ximage.FormatImage{
		Format: ximage.ARGB8888,
		Rect:   s.Bounds(),
		Pix:    s.mmap,
	}
}
