package wl

import (
	"deedles.dev/wlkit/proto/wayland"
	"deedles.dev/wlkit/wire"
)

// Callback is a wl_callback.
type Callback struct {
	Done func(data uint32)

	proxy *Proxy
}

func newCallback(display *Display, done func(uint32)) *Callback {
	cb := Callback{Done: done}
	cb.proxy = NewProxy(display, wayland.Callback, 1, EventFunc(cb.event))
	cb.proxy.SetData(&cb)
	return &cb
}

func (cb *Callback) Proxy() *Proxy {
	return cb.proxy
}

// Then sets the function to be called when the callback is done.
func (cb *Callback) Then(f func(uint32)) {
	cb.Done = f
}

func (cb *Callback) event(p *Proxy, op uint16, msg *wire.MessageBuffer) error {
	data := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}
	if cb.Done != nil {
		cb.Done(data)
	}
	return nil
}
