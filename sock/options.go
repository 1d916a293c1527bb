package sock

import (
	"math/rand/v2"

	"github.com/go-zeromq/zmq4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// IANA range for dynamic or private ports.
const (
	DynamicFirst = 0xc000 // 49152
	DynamicLast  = 0xffff // 65535
)

type options struct {
	logger     zerolog.Logger
	observer   Observer
	tracker    Tracker
	transport  Transport
	first      int
	last       int
	rand       *rand.Rand
	socketOpts []zmq4.Option
}

func defaultOptions() options {
	return options{
		logger:    log.Logger.With().Str("component", "sock").Logger(),
		observer:  nopObserver{},
		transport: ZMQ{},
		first:     DynamicFirst,
		last:      DynamicLast,
	}
}

// Option configures a Handle at construction.
type Option func(*options)

// WithLogger sets the logger used by the handle.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver reports socket events to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			obs = nopObserver{}
		}
		o.observer = obs
	}
}

// WithTracker registers every handle with t until it is destroyed.
func WithTracker(t Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// WithTransport replaces the transport used to open native sockets.
func WithTransport(t Transport) Option {
	return func(o *options) {
		if t != nil {
			o.transport = t
		}
	}
}

// WithDynamicRange overrides the bounds used when a dynamic endpoint omits
// first or last. Invalid ranges are ignored.
func WithDynamicRange(first, last int) Option {
	return func(o *options) {
		if first < 1 || last > 0xffff || first > last {
			return
		}
		o.first = first
		o.last = last
	}
}

// WithRand sets the source used to pick the starting port for "!" endpoints.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithSocketOptions passes zmq4 options to the native socket.
func WithSocketOptions(opts ...zmq4.Option) Option {
	return func(o *options) {
		o.socketOpts = append(o.socketOpts, opts...)
	}
}

func (o *options) intN(n int) int {
	if o.rand != nil {
		return o.rand.IntN(n)
	}
	return rand.IntN(n)
}
