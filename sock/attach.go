package sock

import (
	"context"
	"fmt"
	"strings"
)

const maxEndpointLen = 255

// Attach binds or connects the socket to each endpoint in a comma-separated
// list. An endpoint prefixed with '@' is bound and one prefixed with '>' is
// connected; otherwise serverish decides. Segments are not trimmed, and a
// trailing comma ends the list. The first failure is returned; endpoints
// attached before it stay attached. An empty list is a no-op.
func (h *Handle) Attach(endpoints string, serverish bool) error {
	h.check()

	for endpoints != "" {
		endpoint, rest, more := strings.Cut(endpoints, ",")
		if len(endpoint) > maxEndpointLen {
			return fmt.Errorf("%w: %.40s...", ErrEndpointTooLong, endpoint)
		}

		var err error
		switch {
		case strings.HasPrefix(endpoint, "@"):
			_, err = h.Bind(endpoint[1:])
		case strings.HasPrefix(endpoint, ">"):
			err = h.Connect(endpoint[1:])
		case serverish:
			_, err = h.Bind(endpoint)
		default:
			err = h.Connect(endpoint)
		}
		if err != nil {
			return err
		}

		if !more {
			break
		}
		endpoints = rest
	}
	return nil
}

// newAttached creates a socket of type t and attaches endpoints using the
// type's default direction.
func newAttached(ctx context.Context, t Type, endpoints string, opts []Option) (*Handle, error) {
	h, err := newHandle(ctx, t, 3, opts)
	if err != nil {
		return nil, err
	}
	if err := h.Attach(endpoints, t.Serverish()); err != nil {
		h.Destroy()
		return nil, err
	}
	return h, nil
}

// NewPub creates a PUB socket. Endpoints are bound by default.
func NewPub(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Pub, endpoints, opts)
}

// NewSub creates a SUB socket subscribed to prefix; "" receives everything.
// Endpoints are connected by default.
func NewSub(ctx context.Context, endpoints, prefix string, opts ...Option) (*Handle, error) {
	h, err := newAttached(ctx, Sub, endpoints, opts)
	if err != nil {
		return nil, err
	}
	if err := h.Subscribe(prefix); err != nil {
		h.Destroy()
		return nil, err
	}
	return h, nil
}

// NewReq creates a REQ socket. Endpoints are connected by default.
func NewReq(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Req, endpoints, opts)
}

// NewRep creates a REP socket. Endpoints are bound by default.
func NewRep(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Rep, endpoints, opts)
}

// NewDealer creates a DEALER socket. Endpoints are connected by default.
func NewDealer(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Dealer, endpoints, opts)
}

// NewRouter creates a ROUTER socket. Endpoints are bound by default.
func NewRouter(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Router, endpoints, opts)
}

// NewPush creates a PUSH socket. Endpoints are connected by default.
func NewPush(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Push, endpoints, opts)
}

// NewPull creates a PULL socket. Endpoints are bound by default.
func NewPull(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Pull, endpoints, opts)
}

// NewXPub creates an XPUB socket. Endpoints are bound by default.
func NewXPub(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, XPub, endpoints, opts)
}

// NewXSub creates an XSUB socket. Endpoints are connected by default.
func NewXSub(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, XSub, endpoints, opts)
}

// NewPair creates a PAIR socket. Endpoints are connected by default.
func NewPair(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Pair, endpoints, opts)
}

// NewStream creates a STREAM socket. Endpoints are connected by default.
// The zmq4 transport has no STREAM sockets, so this needs WithTransport.
func NewStream(ctx context.Context, endpoints string, opts ...Option) (*Handle, error) {
	return newAttached(ctx, Stream, endpoints, opts)
}
