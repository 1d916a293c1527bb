package sock

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// Transport opens native sockets for handles.
type Transport interface {
	Open(ctx context.Context, t Type, opts ...zmq4.Option) (zmq4.Socket, error)
}

// ZMQ is the default transport, backed by the pure Go zmq4 implementation.
type ZMQ struct{}

// Open creates a zmq4 socket of type t. The socket accepts a single
// successful Listen; see singleListener.
func (ZMQ) Open(ctx context.Context, t Type, opts ...zmq4.Option) (zmq4.Socket, error) {
	native, err := openZMQ(ctx, t, opts...)
	if err != nil {
		return nil, err
	}
	return &singleListener{Socket: native}, nil
}

func openZMQ(ctx context.Context, t Type, opts ...zmq4.Option) (zmq4.Socket, error) {
	switch t {
	case Pair:
		return zmq4.NewPair(ctx, opts...), nil
	case Pub:
		return zmq4.NewPub(ctx, opts...), nil
	case Sub:
		return zmq4.NewSub(ctx, opts...), nil
	case Req:
		return zmq4.NewReq(ctx, opts...), nil
	case Rep:
		return zmq4.NewRep(ctx, opts...), nil
	case Dealer:
		return zmq4.NewDealer(ctx, opts...), nil
	case Router:
		return zmq4.NewRouter(ctx, opts...), nil
	case Pull:
		return zmq4.NewPull(ctx, opts...), nil
	case Push:
		return zmq4.NewPush(ctx, opts...), nil
	case XPub:
		return zmq4.NewXPub(ctx, opts...), nil
	case XSub:
		return zmq4.NewXSub(ctx, opts...), nil
	case Stream:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
}

// singleListener refuses a second listener. A zmq4 socket stores one
// listener and replaces it on every Listen, so earlier listeners would stay
// open after Close.
type singleListener struct {
	zmq4.Socket
	listening string
}

func (s *singleListener) Listen(endpoint string) error {
	if s.listening != "" {
		return fmt.Errorf("%w: socket already listening on %s", ErrNotSupported, s.listening)
	}
	if err := s.Socket.Listen(endpoint); err != nil {
		return err
	}
	s.listening = endpoint
	return nil
}

// unbinder and disconnecter are optional capabilities of a native socket.
// zmq4 sockets implement neither.
type unbinder interface {
	Unbind(endpoint string) error
}

type disconnecter interface {
	Disconnect(endpoint string) error
}
