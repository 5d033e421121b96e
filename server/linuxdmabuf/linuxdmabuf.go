// Package linuxdmabuf implements the server side of the
// zwp_linux_dmabuf_v1 protocol, which lets clients create wl_buffers
// from dma-bufs.
package linuxdmabuf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/linuxdmabuf"
	wl "deedles.dev/wlkit/server"
	"deedles.dev/wlkit/shm"
	"deedles.dev/wlkit/wire"
)

// Importer turns validated dma-buf attributes into something the
// compositor can use, such as a texture. The attributes, including
// their files, remain owned by the caller. The returned handle is
// closed along with the buffer if it implements io.Closer.
type Importer interface {
	Import(attrs *wl.DmabufAttributes) (any, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(attrs *wl.DmabufAttributes) (any, error)

func (f ImporterFunc) Import(attrs *wl.DmabufAttributes) (any, error) {
	return f(attrs)
}

// Format is a supported pixel format along with the modifiers it is
// supported with.
type Format struct {
	Format    fourcc.Format
	Modifiers []uint64
}

// Dmabuf is the zwp_linux_dmabuf_v1 global.
type Dmabuf struct {
	global   *wl.Global
	formats  []Format
	importer Importer

	onBuffer wl.Signal[*wl.DmabufBuffer]
}

// New creates a zwp_linux_dmabuf_v1 global supporting the given
// formats. Versions 1 through 3 are supported.
func New(display *wl.Display, version uint32, formats []Format, importer Importer) *Dmabuf {
	d := Dmabuf{
		formats:  slices.Clone(formats),
		importer: importer,
	}
	d.global = wl.NewGlobal(display, linuxdmabuf.Dmabuf, version, &d)
	d.global.SetData(&d)
	return &d
}

func (d *Dmabuf) Global() *wl.Global {
	return d.global
}

// OnBuffer registers f to be called for every successfully created
// buffer.
func (d *Dmabuf) OnBuffer(f func(*wl.DmabufBuffer)) *wl.Listener[*wl.DmabufBuffer] {
	return d.onBuffer.Add(f)
}

func (d *Dmabuf) supports(format fourcc.Format, modifier uint64) bool {
	for _, f := range d.formats {
		if f.Format != format {
			continue
		}
		if len(f.Modifiers) == 0 {
			return (modifier == fourcc.ModInvalid) || (modifier == fourcc.ModLinear)
		}
		return slices.Contains(f.Modifiers, modifier)
	}
	return false
}

func (d *Dmabuf) Bind(b *wl.Bind) (wl.Implementation, error) {
	for _, f := range d.formats {
		b.Send(linuxdmabuf.DmabufEventFormat, uint32(f.Format))
		if b.Version() < 3 {
			continue
		}
		mods := f.Modifiers
		if len(mods) == 0 {
			mods = []uint64{fourcc.ModInvalid}
		}
		for _, mod := range mods {
			b.Send(linuxdmabuf.DmabufEventModifier, uint32(f.Format), uint32(mod>>32), uint32(mod))
		}
	}
	return wl.ImplementationFunc(d.request), nil
}

func (d *Dmabuf) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case linuxdmabuf.DmabufDestroy:
		return nil

	case linuxdmabuf.DmabufCreateParams:
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		res, err := wl.NewResource(r.Client(), linuxdmabuf.BufferParams, r.Version(), uint32(id), nil)
		if err != nil {
			return err
		}
		p := NewParams(d, res)
		res.SetImplementation(wl.ImplementationFunc(p.request))
		return nil

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}

// Params collects the planes of a dma-buf before a buffer is created
// from them. Until a buffer is successfully created, the params own
// the planes' files.
type Params struct {
	dmabuf   *Dmabuf
	resource *wl.Resource
	planes   [linuxdmabuf.MaxPlanes]*wl.DmabufPlane
	used     bool
}

// NewParams returns params that report errors and events through r.
// If r is nil, no events are sent and buffers can only be created with
// an explicit client. Otherwise the planes are closed when r is
// destroyed.
func NewParams(d *Dmabuf, r *wl.Resource) *Params {
	p := Params{dmabuf: d, resource: r}
	if r != nil {
		r.SetData(&p)
		r.OnDestroy(func(*wl.Resource) { p.Close() })
	}
	return &p
}

// ParamsFromResource returns the params behind a
// zwp_linux_buffer_params_v1 resource.
func ParamsFromResource(r *wl.Resource) (*Params, bool) {
	p, ok := r.Data().(*Params)
	return p, ok
}

// Close closes the files of every plane that the params still own.
func (p *Params) Close() error {
	var errs []error
	for i, plane := range p.planes {
		if plane == nil {
			continue
		}
		errs = append(errs, plane.File.Close())
		p.planes[i] = nil
	}
	return errors.Join(errs...)
}

func (p *Params) errorf(code uint32, format string, args ...any) *wl.ProtocolError {
	if p.resource != nil {
		return p.resource.Errorf(code, format, args...)
	}
	return &wl.ProtocolError{
		Interface: linuxdmabuf.BufferParams.Name,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Add sets one plane. The params take ownership of file, and close it
// immediately if the plane can not be added.
func (p *Params) Add(file *os.File, idx, offset, stride uint32, modifier uint64) error {
	err := p.add(file, idx, offset, stride, modifier)
	if err != nil {
		file.Close()
	}
	return err
}

func (p *Params) add(file *os.File, idx, offset, stride uint32, modifier uint64) error {
	if p.used {
		return p.errorf(linuxdmabuf.BufferParamsErrorAlreadyUsed, "params was already used to create a wl_buffer")
	}
	if idx >= linuxdmabuf.MaxPlanes {
		return p.errorf(linuxdmabuf.BufferParamsErrorPlaneIdx, "plane index %v is too high", idx)
	}
	if p.planes[idx] != nil {
		return p.errorf(linuxdmabuf.BufferParamsErrorPlaneSet, "a dmabuf has already been added for plane %v", idx)
	}
	for _, plane := range p.planes {
		if (plane != nil) && (plane.Modifier != modifier) {
			return p.errorf(
				linuxdmabuf.BufferParamsErrorInvalidFormat,
				"sent modifier %v for plane %v, expected modifier %v like other planes",
				modifier, idx, plane.Modifier,
			)
		}
	}

	p.planes[idx] = &wl.DmabufPlane{
		File:     file,
		Offset:   offset,
		Stride:   stride,
		Modifier: modifier,
	}
	return nil
}

// Create validates the planes and imports them. If bufferID is zero,
// the buffer gets a server-allocated ID and is announced with the
// created event, and a failed import sends the failed event. If
// bufferID is not zero, the buffer is created with that ID and a
// failed import is a fatal protocol error.
//
// On success, ownership of the planes passes to the new buffer. If
// the import or the buffer's creation fails, the planes are closed,
// along with the importer's handle if it is an io.Closer.
func (p *Params) Create(client *wl.Client, bufferID uint32, width, height int32, format fourcc.Format, flags uint32) (*wl.DmabufBuffer, error) {
	attrs, err := p.validate(width, height, format, flags)
	if err != nil {
		return nil, err
	}

	handle, err := p.dmabuf.importer.Import(&attrs)
	if err != nil {
		p.Close()
		if bufferID != 0 {
			return nil, p.errorf(linuxdmabuf.BufferParamsErrorInvalidWlBuffer, "importing the supplied dmabufs failed: %v", err)
		}
		if p.resource != nil {
			p.resource.Send(linuxdmabuf.BufferParamsEventFailed)
		}
		return nil, nil
	}

	buf, err := wl.NewDmabufBuffer(client, bufferID, attrs, handle)
	if err != nil {
		if c, ok := handle.(io.Closer); ok {
			c.Close()
		}
		p.Close()
		return nil, err
	}
	p.planes = [linuxdmabuf.MaxPlanes]*wl.DmabufPlane{}

	if (bufferID == 0) && (p.resource != nil) {
		p.resource.Send(linuxdmabuf.BufferParamsEventCreated, buf.Resource())
	}
	p.dmabuf.onBuffer.Emit(buf)
	return buf, nil
}

func (p *Params) validate(width, height int32, format fourcc.Format, flags uint32) (wl.DmabufAttributes, error) {
	if p.used {
		return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorAlreadyUsed, "params was already used to create a wl_buffer")
	}
	p.used = true

	if p.planes[0] == nil {
		return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorIncomplete, "no dmabuf has been added to the params")
	}

	n := 0
	for i, plane := range p.planes {
		if plane != nil {
			n = i + 1
		}
	}
	for i := range n {
		if p.planes[i] == nil {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorIncomplete, "no dmabuf has been added for plane %v", i)
		}
	}

	if (width <= 0) || (height <= 0) {
		return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorInvalidDimensions, "invalid width %v or height %v", width, height)
	}

	for i, plane := range p.planes[:n] {
		if uint64(plane.Offset)+uint64(plane.Stride) > math.MaxUint32 {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorOutOfBounds, "size overflow for plane %v", i)
		}
		if (i == 0) && (uint64(plane.Offset)+uint64(plane.Stride)*uint64(height) > math.MaxUint32) {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorOutOfBounds, "size overflow for plane %v", i)
		}

		size, err := shm.FileSize(plane.File)
		if err != nil {
			// Not every dma-buf exporter supports seeking.
			continue
		}
		if int64(plane.Offset) >= size {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorOutOfBounds, "invalid offset %v for plane %v", plane.Offset, i)
		}
		if int64(plane.Offset)+int64(plane.Stride) > size {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorOutOfBounds, "invalid stride %v for plane %v", plane.Stride, i)
		}
		if (i == 0) && (int64(plane.Offset)+int64(plane.Stride)*int64(height) > size) {
			return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorOutOfBounds, "invalid buffer stride or height for plane %v", i)
		}
	}

	modifier := p.planes[0].Modifier
	if !p.dmabuf.supports(format, modifier) {
		return wl.DmabufAttributes{}, p.errorf(linuxdmabuf.BufferParamsErrorInvalidFormat, "format %v with modifier 0x%x is not supported", format, modifier)
	}

	attrs := wl.DmabufAttributes{
		Width:    width,
		Height:   height,
		Format:   format,
		Flags:    flags & (linuxdmabuf.BufferParamsFlagsYInvert | linuxdmabuf.BufferParamsFlagsInterlaced | linuxdmabuf.BufferParamsFlagsBottomFirst),
		Modifier: modifier,
		Planes:   make([]wl.DmabufPlane, n),
	}
	for i, plane := range p.planes[:n] {
		attrs.Planes[i] = *plane
	}
	return attrs, nil
}

func (p *Params) request(r *wl.Resource, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case linuxdmabuf.BufferParamsDestroy:
		return nil

	case linuxdmabuf.BufferParamsAdd:
		file := msg.ReadFile()
		idx := msg.ReadUint()
		offset := msg.ReadUint()
		stride := msg.ReadUint()
		modHi := msg.ReadUint()
		modLo := msg.ReadUint()
		if err := msg.Err(); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}
		return p.Add(file, idx, offset, stride, uint64(modHi)<<32|uint64(modLo))

	case linuxdmabuf.BufferParamsCreate:
		width := msg.ReadInt()
		height := msg.ReadInt()
		format := msg.ReadUint()
		flags := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		_, err := p.Create(r.Client(), 0, width, height, fourcc.Format(format), flags)
		return err

	case linuxdmabuf.BufferParamsCreateImmed:
		id := msg.ReadObject()
		width := msg.ReadInt()
		height := msg.ReadInt()
		format := msg.ReadUint()
		flags := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if id == 0 {
			return p.errorf(linuxdmabuf.BufferParamsErrorInvalidWlBuffer, "invalid buffer id 0")
		}
		_, err := p.Create(r.Client(), uint32(id), width, height, fourcc.Format(format), flags)
		return err

	default:
		return wire.UnknownOpError{Interface: r.Interface().Name, Type: "request", Op: op}
	}
}
