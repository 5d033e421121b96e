// Package fourcc contains the DRM pixel format codes and format
// modifiers used by wl_shm and linux-dmabuf.
package fourcc

import (
	"fmt"
	"strings"
)

// Format is a DRM fourcc pixel format code.
type Format uint32

func code(a, b, c, d byte) Format {
	return Format(a) | Format(b)<<8 | Format(c)<<16 | Format(d)<<24
}

var (
	ARGB8888    = code('A', 'R', '2', '4')
	XRGB8888    = code('X', 'R', '2', '4')
	ABGR8888    = code('A', 'B', '2', '4')
	XBGR8888    = code('X', 'B', '2', '4')
	RGBA8888    = code('R', 'A', '2', '4')
	RGBX8888    = code('R', 'X', '2', '4')
	BGRA8888    = code('B', 'A', '2', '4')
	BGRX8888    = code('B', 'X', '2', '4')
	ARGB2101010 = code('A', 'R', '3', '0')
	XRGB2101010 = code('X', 'R', '3', '0')
	ABGR2101010 = code('A', 'B', '3', '0')
	XBGR2101010 = code('X', 'B', '3', '0')
	RGB565      = code('R', 'G', '1', '6')
	NV12        = code('N', 'V', '1', '2')

	ABGR16161616F = code('A', 'B', '4', 'H')
	XBGR16161616F = code('X', 'B', '4', 'H')
)

// Format modifiers.
const (
	ModLinear  uint64 = 0
	ModInvalid uint64 = 0x00ffffffffffffff
)

type info struct {
	name   string
	alpha  bool
	planes int
}

var known = map[Format]info{
	ARGB8888:      {name: "ARGB8888", alpha: true, planes: 1},
	XRGB8888:      {name: "XRGB8888", planes: 1},
	ABGR8888:      {name: "ABGR8888", alpha: true, planes: 1},
	XBGR8888:      {name: "XBGR8888", planes: 1},
	RGBA8888:      {name: "RGBA8888", alpha: true, planes: 1},
	RGBX8888:      {name: "RGBX8888", planes: 1},
	BGRA8888:      {name: "BGRA8888", alpha: true, planes: 1},
	BGRX8888:      {name: "BGRX8888", planes: 1},
	ARGB2101010:   {name: "ARGB2101010", alpha: true, planes: 1},
	XRGB2101010:   {name: "XRGB2101010", planes: 1},
	ABGR2101010:   {name: "ABGR2101010", alpha: true, planes: 1},
	XBGR2101010:   {name: "XBGR2101010", planes: 1},
	RGB565:        {name: "RGB565", planes: 1},
	NV12:          {name: "NV12", planes: 2},
	ABGR16161616F: {name: "ABGR16161616F", alpha: true, planes: 1},
	XBGR16161616F: {name: "XBGR16161616F", planes: 1},
}

// Known reports whether f is in the package's format table.
func (f Format) Known() bool {
	_, ok := known[f]
	return ok
}

// HasAlpha reports whether f carries an alpha channel. Unknown
// formats are reported as opaque.
func (f Format) HasAlpha() bool {
	return known[f].alpha
}

// Planes returns the number of planes f is made of, or zero for an
// unknown format.
func (f Format) Planes() int {
	return known[f].planes
}

func (f Format) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if (c < ' ') || (c > '~') {
			return fmt.Sprintf("Format(0x%08x)", uint32(f))
		}
	}
	return string(b[:])
}

// FromShm converts a wl_shm format to a fourcc code. wl_shm uses 0
// and 1 for ARGB8888 and XRGB8888 and the fourcc codes for everything
// else.
func FromShm(format uint32) Format {
	switch format {
	case 0:
		return ARGB8888
	case 1:
		return XRGB8888
	default:
		return Format(format)
	}
}

// ToShm is the inverse of FromShm.
func ToShm(f Format) uint32 {
	switch f {
	case ARGB8888:
		return 0
	case XRGB8888:
		return 1
	default:
		return uint32(f)
	}
}

// Name returns the format's name, such as "ARGB8888", or the empty
// string if the format is unknown.
func (f Format) Name() string {
	return known[f].name
}

// Parse returns the format named by s. It accepts either a known
// format's name or a four character code, such as "AR24".
func Parse(s string) (Format, error) {
	for f, info := range known {
		if strings.EqualFold(info.name, s) {
			return f, nil
		}
	}
	if len(s) == 4 {
		return code(s[0], s[1], s[2], s[3]), nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}
