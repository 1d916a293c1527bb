package sock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
)

// ActorTerm is sent down the pipe when an actor is destroyed.
const ActorTerm = "$TERM"

// ActorFunc is the body of an actor. It must Signal(pipe, 0) once ready, and
// return after receiving ActorTerm on the pipe or when ctx is done.
type ActorFunc func(ctx context.Context, pipe *Handle)

// Actor runs an ActorFunc in its own goroutine, connected to the caller by a
// PAIR pipe over inproc.
type Actor struct {
	pipe   *Handle
	back   *Handle
	cancel context.CancelFunc
	done   chan struct{}
}

var actorSeq atomic.Uint64

// NewActor starts fn and blocks until it signals readiness.
func NewActor(ctx context.Context, fn ActorFunc, opts ...Option) (*Actor, error) {
	ctx, cancel := context.WithCancel(ctx)
	endpoint := fmt.Sprintf("inproc://hierasock-actor-%d", actorSeq.Add(1))

	front, err := newHandle(ctx, Pair, 2, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	if _, err := front.Bind(endpoint); err != nil {
		front.Destroy()
		cancel()
		return nil, err
	}

	back, err := newHandle(ctx, Pair, 2, opts)
	if err != nil {
		front.Destroy()
		cancel()
		return nil, err
	}
	if err := back.Connect(endpoint); err != nil {
		back.Destroy()
		front.Destroy()
		cancel()
		return nil, err
	}

	a := &Actor{
		pipe:   front,
		back:   back,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go a.run(ctx, fn)

	if _, err := front.Wait(); err != nil {
		cancel()
		<-a.done
		back.Destroy()
		front.Destroy()
		return nil, fmt.Errorf("actor failed to start: %w", err)
	}
	return a, nil
}

// run executes fn and signals its exit on the pipe. The actor's end of the
// pipe stays open until Destroy so that queued signals reach the caller.
func (a *Actor) run(ctx context.Context, fn ActorFunc) {
	defer close(a.done)

	fn(ctx, a.back)
	_ = a.back.Signal(0)
}

// Destroy sends ActorTerm, waits for the actor to exit, and closes both ends
// of the pipe. A nil actor is ignored.
func (a *Actor) Destroy() {
	if a == nil {
		return
	}

	select {
	case <-a.done:
	default:
		// run signals on the pipe before closing done, so done covers the
		// exit signal.
		_ = a.pipe.Send(zmq4.NewMsgString(ActorTerm))
		<-a.done
	}
	a.back.Destroy()
	a.pipe.Destroy()
	a.cancel()
}

// Send sends msg to the actor.
func (a *Actor) Send(msg zmq4.Msg) error {
	return a.pipe.Send(msg)
}

// Recv receives a message from the actor.
func (a *Actor) Recv() (zmq4.Msg, error) {
	return a.pipe.Recv()
}

// Pipe returns the caller's end of the actor pipe.
func (a *Actor) Pipe() *Handle {
	return a.pipe
}

// Resolve returns the native socket of the caller's end of the pipe.
func (a *Actor) Resolve() zmq4.Socket {
	return a.pipe.Resolve()
}
