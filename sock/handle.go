package sock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"

	"github.com/go-zeromq/zmq4"

	"github.com/VanDung-dev/hierasock/logging"
)

const (
	handleTag = 0x0004cafe
	deadTag   = 0xdeadbeef
)

// Conn moves whole multi-frame messages. Handles, actors and bare zmq4
// sockets all satisfy it.
type Conn interface {
	Send(msg zmq4.Msg) error
	Recv() (zmq4.Msg, error)
}

// Handle owns a native socket together with its type and the last endpoint
// it was bound to.
type Handle struct {
	tag      uint32
	native   zmq4.Socket
	typ      Type
	endpoint string
	opts     options
}

// New creates a socket of type t. It returns an error if the transport
// cannot create the native socket.
func New(ctx context.Context, t Type, opts ...Option) (*Handle, error) {
	return newHandle(ctx, t, 2, opts)
}

// newHandle records the caller skip frames up as the creation site.
func newHandle(ctx context.Context, t Type, skip int, opts []Option) (*Handle, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	socketOpts := append([]zmq4.Option{zmq4.WithLogger(logging.StdLogger(o.logger))}, o.socketOpts...)
	native, err := o.transport.Open(ctx, t, socketOpts...)
	if err == nil && native == nil {
		err = errors.New("transport returned no socket")
	}
	if err != nil {
		o.logger.Error().Err(err).Str("type", t.String()).Msg("failed to create socket")
		return nil, fmt.Errorf("failed to create %s socket: %w", t, err)
	}

	h := &Handle{
		tag:    handleTag,
		native: native,
		typ:    t,
		opts:   o,
	}
	if o.tracker != nil {
		_, file, line, _ := runtime.Caller(skip)
		o.tracker.Track(h, file, line)
	}
	o.observer.SocketOpened(t)
	return h, nil
}

// Destroy closes the native socket and invalidates the handle. A nil handle
// is ignored. Destroy panics if the native socket fails to close.
func (h *Handle) Destroy() {
	if h == nil {
		return
	}
	h.check()
	h.tag = deadTag

	// A connection the peer or a cancelled context already tore down reports
	// net.ErrClosed; the socket itself is still released.
	if err := h.native.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		h.opts.logger.Error().Err(err).Str("type", h.typ.String()).Msg("failed to close socket")
		panic(fmt.Sprintf("sock: failed to close %s socket: %v", h.typ, err))
	}
	if h.opts.tracker != nil {
		h.opts.tracker.Untrack(h)
	}
	h.opts.observer.SocketClosed(h.typ)
	h.endpoint = ""
}

// check panics unless h is a live handle.
func (h *Handle) check() {
	if h == nil || h.tag != handleTag {
		panic("sock: invalid handle")
	}
}

// Type returns the socket type.
func (h *Handle) Type() Type {
	h.check()
	return h.typ
}

// TypeName returns the socket type as a printable constant, e.g. "PUSH".
func (h *Handle) TypeName() string {
	h.check()
	return typeNames[h.typ]
}

// Endpoint returns the last successfully bound endpoint, or "".
func (h *Handle) Endpoint() string {
	h.check()
	return h.endpoint
}

// Resolve returns the native socket.
func (h *Handle) Resolve() zmq4.Socket {
	h.check()
	return h.native
}

// Send sends msg as one message. Multi-frame messages are sent atomically.
func (h *Handle) Send(msg zmq4.Msg) error {
	h.check()

	var err error
	if len(msg.Frames) > 1 {
		err = h.native.SendMulti(msg)
	} else {
		err = h.native.Send(msg)
	}
	h.opts.observer.MessageSent(len(msg.Frames), err)
	return err
}

// Recv blocks until a message arrives or the socket is closed.
func (h *Handle) Recv() (zmq4.Msg, error) {
	h.check()

	msg, err := h.native.Recv()
	h.opts.observer.MessageReceived(len(msg.Frames), err)
	return msg, err
}

// SetUnbounded removes the high-water mark on the native socket. Use it only
// when the message volume is known to fit in memory.
func (h *Handle) SetUnbounded() error {
	h.check()
	if err := h.native.SetOption(zmq4.OptionHWM, 0); err != nil {
		return fmt.Errorf("failed to set unbounded %s socket: %w", h.typ, err)
	}
	return nil
}

// Subscribe adds a prefix filter on a SUB or XSUB socket.
func (h *Handle) Subscribe(prefix string) error {
	h.check()
	if err := h.native.SetOption(zmq4.OptionSubscribe, prefix); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", prefix, err)
	}
	return nil
}

// Is reports whether ref is a live Handle.
func Is(ref any) bool {
	h, ok := ref.(*Handle)
	return ok && h != nil && h.tag == handleTag
}

// Resolve returns the native socket behind ref, which may be a *Handle, an
// *Actor or a zmq4.Socket. It returns nil for anything else.
func Resolve(ref any) zmq4.Socket {
	switch v := ref.(type) {
	case *Handle:
		return v.Resolve()
	case *Actor:
		return v.Resolve()
	case zmq4.Socket:
		return v
	default:
		return nil
	}
}
