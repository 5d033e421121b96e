package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"deedles.dev/wlkit/internal/set"
	"golang.org/x/sys/unix"
)

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/var/run/user/%v", os.Getuid())
}

// SocketPath determines the path to the Wayland Unix domain socket
// based on the contents of the $WAYLAND_DISPLAY environment variable.
// It does not attempt to determine if the value corresponds to an
// actual socket.
func SocketPath() string {
	v, ok := os.LookupEnv("WAYLAND_DISPLAY")
	if !ok {
		v = "wayland-0"
	}
	return ResolveSocket(v)
}

// NewSocketPath attempts to generate a valid path for opening a new
// socket to listen on.
func NewSocketPath() (string, error) {
	dir := xdgRuntimeDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make(set.Set[int], len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		after, _ = strings.CutSuffix(after, ".lock")
		n, err := strconv.ParseInt(after, 10, 0)
		if err != nil {
			continue
		}
		names.Add(int(n))
	}

	var num int
	for names.Has(num) {
		num++
	}

	return filepath.Join(dir, fmt.Sprintf("wayland-%v", num)), nil
}

// ResolveSocket turns a socket name, such as the value of
// $WAYLAND_DISPLAY, into a path. Relative names are taken to be
// relative to $XDG_RUNTIME_DIR.
func ResolveSocket(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(xdgRuntimeDir(), name)
}

// Listen opens a new Unix domain socket for clients to connect to. If
// path is empty, a free path is chosen with NewSocketPath. Relative
// paths are resolved with ResolveSocket.
func Listen(path string) (*net.UnixListener, error) {
	if path == "" {
		p, err := NewSocketPath()
		if err != nil {
			return nil, fmt.Errorf("find socket path: %w", err)
		}
		path = p
	}
	path = ResolveSocket(path)

	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	lis.SetUnlinkOnClose(true)
	return lis, nil
}

// Conn represents a low-level Wayland connection. It is not generally
// used directly, instead being handled automatically by a client
// Display or a server Client.
//
// File descriptors received over the connection are queued in the
// order they arrive and are handed out, one at a time, to the
// messages that reference them.
type Conn struct {
	conn *net.UnixConn
	r    *bufio.Reader

	fdm sync.Mutex
	fds []int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	conn := Conn{conn: c}
	conn.r = bufio.NewReaderSize(connReader{c: &conn}, MaxMessageSize)
	return &conn
}

// Close closes the underlying connection along with any file
// descriptors that were received but never claimed by a message.
func (c *Conn) Close() error {
	c.fdm.Lock()
	fds := c.fds
	c.fds = nil
	c.fdm.Unlock()

	for _, fd := range fds {
		unix.Close(fd)
	}

	return c.conn.Close()
}

// UnixConn returns the underlying socket.
func (c *Conn) UnixConn() *net.UnixConn {
	return c.conn
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}

	c.fdm.Lock()
	defer c.fdm.Unlock()

	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Conn) popFD() (fd int, ok bool) {
	c.fdm.Lock()
	defer c.fdm.Unlock()

	if len(c.fds) == 0 {
		return -1, false
	}

	fd = c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

func (c *Conn) write(data []byte, fds []int) error {
	oob := unix.UnixRights(fds...)
	for len(data) > 0 {
		n, _, err := c.conn.WriteMsgUnix(data, oob, nil)
		if err != nil {
			return err
		}
		data = data[n:]
		oob = nil
	}
	return nil
}

// connReader reads from a Conn's socket, capturing any file
// descriptors that come along with the data.
type connReader struct {
	c *Conn
}

func (r connReader) Read(buf []byte) (int, error) {
	oob := make([]byte, unix.CmsgSpace(MaxFDsOut*4))
	n, oobn, _, _, err := r.c.conn.ReadMsgUnix(buf, oob)
	if oobn > 0 {
		if ooberr := r.c.readFDs(oob[:oobn]); ooberr != nil {
			err = errors.Join(err, ooberr)
		}
	}
	if (n == 0) && (err == nil) {
		// A zero-length read on a stream socket means the peer hung up.
		err = io.EOF
	}
	return n, err
}

// Dial opens a connection to the Wayland socket based on the current
// environment. It follows the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports
func Dial() (*Conn, error) {
	if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
		fd, err := strconv.ParseInt(v, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
		}
		file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
		defer file.Close()

		c, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			c.Close()
			return nil, fmt.Errorf("WAYLAND_SOCKET is not a unix socket: %T", c)
		}
		return NewConn(uc), nil
	}

	return DialSocket(SocketPath())
}

// DialSocket connects to the socket with the given name, resolved
// with ResolveSocket.
func DialSocket(name string) (*Conn, error) {
	s, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: ResolveSocket(name), Net: "unix"})
	if err != nil {
		return nil, err
	}
	return NewConn(s), nil
}
