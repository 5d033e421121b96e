// Package shm provides helpers for dealing with shared memory.
package shm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Create creates an anonymous shared memory file.
func Create() (*os.File, error) {
	fd, err := unix.MemfdCreate("wlkit-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	return os.NewFile(uintptr(fd), "wlkit-shm"), nil
}

// Mmap is a memory mapped region.
type Mmap []byte

// Map maps size bytes of file privately.
func Map(file *os.File, size int, prot int) (Mmap, error) {
	return mmap(file, size, prot, unix.MAP_PRIVATE)
}

// MapShared maps size bytes of file so that changes are visible to
// other processes mapping the same file.
func MapShared(file *os.File, size int, prot int) (Mmap, error) {
	return mmap(file, size, prot, unix.MAP_SHARED)
}

func mmap(file *os.File, size, prot, flags int) (m Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		var data []byte
		data, err = unix.Mmap(int(fd), 0, size, prot, flags)
		m = Mmap(data)
	})
	if cerr != nil {
		return nil, cerr
	}
	return m, err
}

func (mmap Mmap) Unmap() error {
	if len(mmap) == 0 {
		return nil
	}
	return unix.Munmap(mmap)
}

// ErrSizeUnsupported is returned by FileSize for files that can not
// report their size, such as pipes.
var ErrSizeUnsupported = errors.New("file size query unsupported")

// FileSize determines the size of file by seeking to its end. The
// file offset is restored afterwards. Some valid dma-buf exporters do
// not allow seeking at all, in which case ErrSizeUnsupported is
// returned.
func FileSize(file *os.File) (int64, error) {
	cur, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, unsupported(err)
	}
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, unsupported(err)
	}
	if _, err := file.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

func unsupported(err error) error {
	if errors.Is(err, unix.ESPIPE) || errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("%w: %w", ErrSizeUnsupported, err)
	}
	return err
}
