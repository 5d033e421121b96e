package wl

import (
	"os"
	"slices"

	"deedles.dev/wlkit/fourcc"
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Shm is a wl_shm.
type Shm struct {
	Format func(fourcc.Format)

	proxy   *Proxy
	formats []fourcc.Format
}

// BindShm binds the wl_shm global with the given name.
func BindShm(registry *Registry, name, version uint32) *Shm {
	var shm Shm
	shm.proxy = registry.Bind(name, wayland.Shm, version, EventFunc(shm.event))
	shm.proxy.SetData(&shm)
	return &shm
}

func (shm *Shm) Proxy() *Proxy {
	return shm.proxy
}

// Formats returns every format the server has announced so far.
func (shm *Shm) Formats() []fourcc.Format {
	return slices.Clone(shm.formats)
}

// CreatePool creates a pool backed by file. The file is not closed.
func (shm *Shm) CreatePool(file *os.File, size int32) *ShmPool {
	pool := ShmPool{shm: shm}
	pool.proxy = NewProxy(shm.proxy.display, wayland.ShmPool, shm.proxy.version, nil)
	pool.proxy.SetData(&pool)
	shm.proxy.Request(wayland.ShmCreatePool, pool.proxy, file, size)
	return &pool
}

// Release releases the wl_shm object. It requires version 2.
func (shm *Shm) Release() error {
	return shm.proxy.Request(wayland.ShmRelease)
}

func (shm *Shm) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.ShmEventFormat:
		format := fourcc.FromShm(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}

		shm.formats = append(shm.formats, format)
		if shm.Format != nil {
			shm.Format(format)
		}
		return nil

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}
}

// ShmPool is a wl_shm_pool.
type ShmPool struct {
	shm   *Shm
	proxy *Proxy
}

func (pool *ShmPool) Proxy() *Proxy {
	return pool.proxy
}

func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format fourcc.Format) *Buffer {
	buf := newBuffer(pool.proxy.display)
	pool.proxy.Request(wayland.ShmPoolCreateBuffer, buf.proxy, offset, width, height, stride, fourcc.ToShm(format))
	return buf
}

// Resize grows the pool. The pool's file must already be at least
// size bytes long.
func (pool *ShmPool) Resize(size int32) error {
	return pool.proxy.Request(wayland.ShmPoolResize, size)
}

func (pool *ShmPool) Destroy() error {
	return pool.proxy.Destroy()
}
