package wl

import (
	"errors"
	"fmt"
	"image"

	"deedles.dev/ximage/xcursor"
	"golang.org/x/image/draw"
)

// Cursor is a committed surface showing a cursor image, ready to be
// handed to a pointer.
type Cursor struct {
	surface *Surface
	buf     *ImageBuffer
	hot     image.Point
}

// NewCursor creates a cursor surface showing img with its hotspot at
// hot, relative to the image's top-left corner.
func NewCursor(comp *Compositor, shm *Shm, img image.Image, hot image.Point) (*Cursor, error) {
	bounds := img.Bounds()
	buf, err := NewImageBuffer(shm, int32(bounds.Dx()), int32(bounds.Dy()))
	if err != nil {
		return nil, fmt.Errorf("create buffer: %w", err)
	}
	draw.Draw(buf.Image(), buf.Bounds(), img, bounds.Min, draw.Src)

	s := comp.CreateSurface()
	s.Attach(buf.Buffer(), 0, 0)
	s.DamageBuffer(0, 0, int32(bounds.Dx()), int32(bounds.Dy()))
	if err := s.Commit(); err != nil {
		return nil, errors.Join(err, s.Destroy(), buf.Destroy())
	}

	return &Cursor{surface: s, buf: buf, hot: hot}, nil
}

// LoadCursor loads the cursor called name from an XCursor theme,
// using the image closest to size. An empty theme loads the default
// theme.
func LoadCursor(comp *Compositor, shm *Shm, theme, name string, size int) (*Cursor, error) {
	t, err := xcursor.LoadTheme(theme)
	if err != nil {
		return nil, fmt.Errorf("load theme %q: %w", theme, err)
	}

	c, ok := t.Cursors[name]
	if !ok {
		return nil, fmt.Errorf("no cursor %q in theme %q", name, theme)
	}
	images := c.Images[c.BestSize(size)]
	if len(images) == 0 {
		return nil, fmt.Errorf("cursor %q has no images", name)
	}

	return NewCursor(comp, shm, images[0].Image, images[0].Hot)
}

func (c *Cursor) Surface() *Surface {
	return c.surface
}

func (c *Cursor) Hotspot() image.Point {
	return c.hot
}

// Set makes c the cursor of p. serial must be that of the latest
// enter event p received.
func (c *Cursor) Set(p *Pointer, serial uint32) error {
	return p.SetCursor(serial, c.surface, int32(c.hot.X), int32(c.hot.Y))
}

// Destroy destroys the cursor's surface and buffer.
func (c *Cursor) Destroy() error {
	return errors.Join(c.surface.Destroy(), c.buf.Destroy())
}
