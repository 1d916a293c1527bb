package sock

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/go-zeromq/zmq4"
)

var errFakeBusy = errors.New("address already in use")

// fakeNet is shared by the sockets of one fakeTransport so that a bound
// endpoint is busy for every socket.
type fakeNet struct {
	mu     sync.Mutex
	busy   map[string]bool
	reject map[string]bool
}

func newFakeNet() *fakeNet {
	return &fakeNet{busy: make(map[string]bool), reject: make(map[string]bool)}
}

func (n *fakeNet) occupy(endpoints ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ep := range endpoints {
		n.busy[ep] = true
	}
}

type fakeSocket struct {
	net *fakeNet
	typ Type

	mu       sync.Mutex
	attempts []string
	listened []string
	dialed   []string
	sent     []zmq4.Msg
	options  map[string]interface{}
	closeErr error
	closed   bool
	inbox    chan zmq4.Msg
}

func newFakeSocket(n *fakeNet, t Type) *fakeSocket {
	return &fakeSocket{
		net:     n,
		typ:     t,
		options: make(map[string]interface{}),
		inbox:   make(chan zmq4.Msg, 16),
	}
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeSocket) Send(msg zmq4.Msg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSocket) SendMulti(msg zmq4.Msg) error {
	return s.Send(msg)
}

func (s *fakeSocket) Recv() (zmq4.Msg, error) {
	msg, ok := <-s.inbox
	if !ok {
		return zmq4.Msg{}, net.ErrClosed
	}
	return msg, nil
}

func (s *fakeSocket) Listen(ep string) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, ep)
	s.mu.Unlock()

	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if ep == "" || s.net.reject[ep] || s.net.busy[ep] {
		return errFakeBusy
	}
	s.net.busy[ep] = true

	s.mu.Lock()
	s.listened = append(s.listened, ep)
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) Dial(ep string) error {
	s.net.mu.Lock()
	rejected := ep == "" || s.net.reject[ep]
	s.net.mu.Unlock()
	if rejected {
		return errors.New("invalid endpoint")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialed = append(s.dialed, ep)
	return nil
}

func (s *fakeSocket) Type() zmq4.SocketType {
	return zmq4.SocketType(s.typ.String())
}

func (s *fakeSocket) Addr() net.Addr { return nil }

func (s *fakeSocket) GetOption(name string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options[name], nil
}

func (s *fakeSocket) SetOption(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[name] = value
	return nil
}

// unbindSocket also supports Unbind and Disconnect.
type unbindSocket struct {
	*fakeSocket
	unbound      []string
	disconnected []string
}

func (s *unbindSocket) Unbind(ep string) error {
	s.net.mu.Lock()
	defer s.net.mu.Unlock()
	if !s.net.busy[ep] {
		return errors.New("not bound")
	}
	delete(s.net.busy, ep)
	s.unbound = append(s.unbound, ep)
	return nil
}

func (s *unbindSocket) Disconnect(ep string) error {
	s.disconnected = append(s.disconnected, ep)
	return nil
}

type fakeTransport struct {
	net      *fakeNet
	unbind   bool
	mu       sync.Mutex
	opened   []*fakeSocket
	failType map[Type]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{net: newFakeNet(), failType: make(map[Type]bool)}
}

func (tr *fakeTransport) Open(_ context.Context, t Type, _ ...zmq4.Option) (zmq4.Socket, error) {
	if tr.failType[t] {
		return nil, ErrUnsupportedType
	}
	s := newFakeSocket(tr.net, t)
	tr.mu.Lock()
	tr.opened = append(tr.opened, s)
	tr.mu.Unlock()
	if tr.unbind {
		return &unbindSocket{fakeSocket: s}, nil
	}
	return s, nil
}

// newFakeHandle returns a handle on a fake socket and the socket itself.
func newFakeHandle(t *testing.T, typ Type, opts ...Option) (*Handle, *fakeSocket, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	h, err := New(context.Background(), typ, append([]Option{WithTransport(tr)}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h, tr.opened[0], tr
}

// recordingObserver counts socket events.
type recordingObserver struct {
	mu        sync.Mutex
	opened    int
	closed    int
	binds     []int
	attempts  []int
	connects  int
	failures  int
	sent      int
	received  int
	sentFrame int
}

func (o *recordingObserver) SocketOpened(Type) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *recordingObserver) SocketClosed(Type) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func (o *recordingObserver) BindCompleted(port, attempts int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.binds = append(o.binds, port)
	o.attempts = append(o.attempts, attempts)
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) ConnectCompleted(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connects++
	if err != nil {
		o.failures++
	}
}

func (o *recordingObserver) MessageSent(frames int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent++
	o.sentFrame += frames
}

func (o *recordingObserver) MessageReceived(frames int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received++
}

// chanConn is a Conn backed by a channel.
type chanConn struct {
	c chan zmq4.Msg
}

func newChanConn() *chanConn {
	return &chanConn{c: make(chan zmq4.Msg, 16)}
}

func (c *chanConn) Send(msg zmq4.Msg) error {
	c.c <- msg
	return nil
}

func (c *chanConn) Recv() (zmq4.Msg, error) {
	msg, ok := <-c.c
	if !ok {
		return zmq4.Msg{}, net.ErrClosed
	}
	return msg, nil
}

// expectPanic fails the test unless fn panics with a message containing want.
func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("Expected panic containing %q", want)
		}
		msg, _ := r.(string)
		if err, ok := r.(error); ok {
			msg = err.Error()
		}
		if !strings.Contains(msg, want) {
			t.Errorf("Expected panic containing %q, got %v", want, r)
		}
	}()
	fn()
}
