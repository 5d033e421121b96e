// Package wltest provides helpers for tests that need real
// connections and file descriptors.
package wltest

import (
	"net"
	"os"
	"testing"

	"deedles.dev/wlkit/wire"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// UnixPair returns both ends of a connected Unix socket pair. Both
// are closed when the test ends.
func UnixPair(t testing.TB) (*net.UnixConn, *net.UnixConn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	conv := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "wltest-socket")
		defer f.Close()

		c, err := net.FileConn(f)
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })
		return c.(*net.UnixConn)
	}

	return conv(fds[0]), conv(fds[1])
}

// Pipe returns a pair of connected wire.Conns.
func Pipe(t testing.TB) (*wire.Conn, *wire.Conn) {
	t.Helper()

	c1, c2 := UnixPair(t)
	return wire.NewConn(c1), wire.NewConn(c2)
}

// Memfd returns an anonymous file of the given size. It is closed when
// the test ends.
func Memfd(t testing.TB, size int64) *os.File {
	t.Helper()

	fd, err := unix.MemfdCreate("wltest", unix.MFD_CLOEXEC)
	require.NoError(t, err)
	f := os.NewFile(uintptr(fd), "wltest-memfd")
	t.Cleanup(func() { f.Close() })

	require.NoError(t, f.Truncate(size))
	return f
}

// Pipefd returns the read end of a pipe. Pipes can not be seeked, so
// they stand in for descriptors whose size can not be queried.
func Pipefd(t testing.TB) *os.File {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	w.Close()
	t.Cleanup(func() { r.Close() })
	return r
}
