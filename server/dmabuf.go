package wl

import (
	"errors"
	"io"
	"os"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/wayland"
)

// DmabufPlane is one plane of a dmabuf.
type DmabufPlane struct {
	File     *os.File
	Offset   uint32
	Stride   uint32
	Modifier uint64
}

// DmabufAttributes describes a dmabuf as submitted by a client. The
// plane files are owned by whoever holds the attributes.
type DmabufAttributes struct {
	Width    int32
	Height   int32
	Format   fourcc.Format
	Flags    uint32
	Modifier uint64
	Planes   []DmabufPlane
}

// Close closes every plane's file. Planes are cleared as they are
// closed, so calling Close again does nothing.
func (attrs *DmabufAttributes) Close() error {
	var errs []error
	for i := range attrs.Planes {
		p := &attrs.Planes[i]
		if p.File == nil {
			continue
		}
		errs = append(errs, p.File.Close())
		p.File = nil
	}
	return errors.Join(errs...)
}

// DmabufBuffer is the data behind a wl_buffer created from a dmabuf.
type DmabufBuffer struct {
	resource *Resource
	attrs    DmabufAttributes
	handle   any
}

// NewDmabufBuffer creates a wl_buffer for client backed by attrs. A
// zero id allocates one from the server's range, as for buffers
// announced with linux-dmabuf's created event. Ownership of the plane files passes to the buffer, which closes
// them when its resource is destroyed, along with handle if it
// implements io.Closer. If creation fails, nothing is closed.
func NewDmabufBuffer(client *Client, id uint32, attrs DmabufAttributes, handle any) (*DmabufBuffer, error) {
	var (
		res *Resource
		err error
	)
	if id == 0 {
		res, err = NewServerResource(client, wayland.Buffer, 1, nil)
	} else {
		res, err = NewResource(client, wayland.Buffer, 1, id, nil)
	}
	if err != nil {
		return nil, err
	}

	buf := DmabufBuffer{
		resource: res,
		attrs:    attrs,
		handle:   handle,
	}
	res.SetData(&buf)
	res.OnDestroy(func(*Resource) { buf.close() })

	return &buf, nil
}

// DmabufBufferFromResource returns the dmabuf buffer behind r, if r
// is one.
func DmabufBufferFromResource(r *Resource) (*DmabufBuffer, bool) {
	buf, ok := r.Data().(*DmabufBuffer)
	return buf, ok
}

func (buf *DmabufBuffer) close() {
	buf.attrs.Close()
	if c, ok := buf.handle.(io.Closer); ok {
		c.Close()
	}
	buf.handle = nil
}

func (buf *DmabufBuffer) Resource() *Resource {
	return buf.resource
}

// Attributes returns the buffer's attributes. The files in the planes
// remain owned by the buffer.
func (buf *DmabufBuffer) Attributes() DmabufAttributes {
	return buf.attrs
}

// Handle returns the value produced when the buffer was imported.
func (buf *DmabufBuffer) Handle() any {
	return buf.handle
}
