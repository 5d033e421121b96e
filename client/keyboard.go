package wl

import (
	"os"

	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Keyboard is a wl_keyboard.
type Keyboard struct {
	// Keymap receives ownership of file. If Keymap is nil, the file is
	// closed.
	Keymap     func(format uint32, file *os.File, size uint32)
	Enter      func(serial uint32, s *Surface, keys []byte)
	Leave      func(serial uint32, s *Surface)
	Key        func(serial, time, key, state uint32)
	Modifiers  func(serial, depressed, latched, locked, group uint32)
	RepeatInfo func(rate, delay int32)

	proxy *Proxy
}

func (kb *Keyboard) Proxy() *Proxy {
	return kb.proxy
}

func (kb *Keyboard) Release() error {
	return kb.proxy.Destroy()
}

func (kb *Keyboard) surface(id wire.ObjectID) *Surface {
	proxy, _ := kb.proxy.display.Object(uint32(id))
	s, _ := SurfaceFromProxy(proxy)
	return s
}

func (kb *Keyboard) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	switch op {
	case wayland.KeyboardEventKeymap:
		format := msg.ReadUint()
		file := msg.ReadFile()
		size := msg.ReadUint()
		if err := msg.Err(); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}
		if kb.Keymap == nil {
			file.Close()
			return nil
		}
		kb.Keymap(format, file, size)

	case wayland.KeyboardEventEnter:
		serial := msg.ReadUint()
		s := msg.ReadObject()
		keys := msg.ReadArray()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.Enter != nil {
			kb.Enter(serial, kb.surface(s), keys)
		}

	case wayland.KeyboardEventLeave:
		serial := msg.ReadUint()
		s := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.Leave != nil {
			kb.Leave(serial, kb.surface(s))
		}

	case wayland.KeyboardEventKey:
		serial, time := msg.ReadUint(), msg.ReadUint()
		key, state := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.Key != nil {
			kb.Key(serial, time, key, state)
		}

	case wayland.KeyboardEventModifiers:
		serial := msg.ReadUint()
		depressed, latched, locked := msg.ReadUint(), msg.ReadUint(), msg.ReadUint()
		group := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.Modifiers != nil {
			kb.Modifiers(serial, depressed, latched, locked, group)
		}

	case wayland.KeyboardEventRepeatInfo:
		rate, delay := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.RepeatInfo != nil {
			kb.RepeatInfo(rate, delay)
		}

	default:
		return wire.UnknownOpError{Interface: p.iface.Name, Type: "event", Op: op}
	}

	return nil
}
