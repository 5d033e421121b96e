package wl

import (
	"runtime/debug"
)

// BufferManager indexes the display's live Buffers by their wl_buffer
// resource and arbitrates CPU access to shm memory.
//
// Only one shm buffer may be accessed at a time. Access to the buffer
// that is already being accessed is reference counted.
type BufferManager struct {
	buffers map[*Resource]*Buffer

	access      *ShmBuffer
	accessCount int
	faultPanic  bool
}

// FromResource returns the Buffer for r if one exists. It does not
// add a reference.
func (m *BufferManager) FromResource(r *Resource) (*Buffer, bool) {
	b, ok := m.buffers[r]
	return b, ok
}

// Len returns the number of live Buffers.
func (m *BufferManager) Len() int {
	return len(m.buffers)
}

func (m *BufferManager) add(b *Buffer) {
	if _, ok := m.buffers[b.resource]; ok {
		panic("wl: buffer registered twice")
	}
	m.buffers[b.resource] = b
}

func (m *BufferManager) remove(b *Buffer) {
	if m.buffers[b.resource] != b {
		panic("wl: removing unregistered buffer")
	}
	delete(m.buffers, b.resource)
}

// BeginShmAccess starts CPU access to b's memory. It returns false if
// a different buffer is currently being accessed. Every successful
// call must be paired with a call to EndShmAccess.
//
// While access is open, memory faults on the dispatch goroutine, such
// as those caused by a client truncating the pool's file, panic
// instead of crashing the process.
func (m *BufferManager) BeginShmAccess(b *ShmBuffer) bool {
	if m.access != nil {
		if m.access != b {
			return false
		}
		m.accessCount++
		return true
	}

	m.access = b
	m.accessCount = 1
	m.faultPanic = debug.SetPanicOnFault(true)
	return true
}

// EndShmAccess ends one level of the current access. It panics if no
// access is open.
func (m *BufferManager) EndShmAccess() {
	if m.accessCount <= 0 {
		panic("wl: EndShmAccess without matching BeginShmAccess")
	}

	m.accessCount--
	if m.accessCount > 0 {
		return
	}

	m.access = nil
	debug.SetPanicOnFault(m.faultPanic)
}

// Accessing returns the shm buffer that is currently being accessed,
// if any.
func (m *BufferManager) Accessing() *ShmBuffer {
	return m.access
}
