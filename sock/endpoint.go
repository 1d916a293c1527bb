package sock

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// scheme://host:5555
	literalEndpoint = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://.*:(\d+)$`)
	// scheme://host:* or scheme://host:![first-last], either bound optional
	dynamicEndpoint = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]*://.*):([*!])(\[(\d+)?-(\d+)?\])?$`)
)

type endpointKind int

const (
	endpointOpaque endpointKind = iota
	endpointLiteral
	endpointDynamic
)

// endpointSpec is a parsed bind endpoint.
type endpointSpec struct {
	kind   endpointKind
	base   string // scheme://host, for dynamic endpoints
	port   int    // literal port
	random bool   // '!' operator
	first  int
	last   int
}

// parseEndpoint classifies endpoint. Missing dynamic bounds default to
// first and last.
func parseEndpoint(endpoint string, first, last int) (endpointSpec, error) {
	if m := literalEndpoint.FindStringSubmatch(endpoint); m != nil {
		port, err := strconv.Atoi(m[1])
		if err != nil {
			return endpointSpec{}, fmt.Errorf("invalid port in %q: %w", endpoint, err)
		}
		return endpointSpec{kind: endpointLiteral, port: port}, nil
	}

	if m := dynamicEndpoint.FindStringSubmatch(endpoint); m != nil {
		spec := endpointSpec{
			kind:   endpointDynamic,
			base:   m[1],
			random: m[2] == "!",
			first:  first,
			last:   last,
		}
		if m[4] != "" {
			n, err := strconv.Atoi(m[4])
			if err != nil {
				return endpointSpec{}, fmt.Errorf("invalid first port in %q: %w", endpoint, err)
			}
			spec.first = n
		}
		if m[5] != "" {
			n, err := strconv.Atoi(m[5])
			if err != nil {
				return endpointSpec{}, fmt.Errorf("invalid last port in %q: %w", endpoint, err)
			}
			spec.last = n
		}
		return spec, nil
	}

	return endpointSpec{kind: endpointOpaque}, nil
}

// expand formats an endpoint template. Without args the format is used as is.
func expand(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Bind binds the socket to a formatted endpoint.
//
// For endpoints of the form scheme://host:port it returns the port. The port
// may be "*" to take the first free port, or "!" to start at a random port,
// optionally followed by "[first-last]" with either bound omitted:
//
//	tcp://127.0.0.1:*                first free port from 49152 up
//	tcp://127.0.0.1:!                random free port in 49152-65535
//	tcp://127.0.0.1:*[60000-]        first free port from 60000 up
//	tcp://127.0.0.1:![55000-55999]   random free port in 55000-55999
//
// Other endpoints return 0. On failure Bind returns -1 and the previously
// bound endpoint is kept. Sockets from the ZMQ transport hold one listener,
// so binding one a second time fails with ErrNotSupported.
func (h *Handle) Bind(format string, args ...any) (int, error) {
	h.check()
	endpoint := expand(format, args)

	port, used, attempts, err := h.bind(endpoint)
	h.opts.observer.BindCompleted(port, attempts, err)
	if err != nil {
		h.opts.logger.Debug().Err(err).Str("endpoint", endpoint).Int("attempts", attempts).Msg("bind failed")
		return -1, err
	}

	h.endpoint = used
	h.opts.logger.Debug().Str("endpoint", used).Int("port", port).Msg("bound")
	return port, nil
}

func (h *Handle) bind(endpoint string) (port int, used string, attempts int, err error) {
	spec, err := parseEndpoint(endpoint, h.opts.first, h.opts.last)
	if err != nil {
		return -1, "", 0, fmt.Errorf("%w: %w", ErrBindFailed, err)
	}

	switch spec.kind {
	case endpointLiteral:
		if err := h.native.Listen(endpoint); err != nil {
			return -1, "", 1, fmt.Errorf("%w: %s: %w", ErrBindFailed, endpoint, err)
		}
		return spec.port, endpoint, 1, nil

	case endpointDynamic:
		span := spec.last - spec.first + 1
		port := spec.first
		if spec.random && span > 0 {
			port += h.opts.intN(span)
		}

		lastErr := fmt.Errorf("empty port range [%d-%d]", spec.first, spec.last)
		for attempts < span {
			candidate := fmt.Sprintf("%s:%d", spec.base, port)
			attempts++
			lerr := h.native.Listen(candidate)
			if lerr == nil {
				return port, candidate, attempts, nil
			}
			lastErr = lerr
			if errors.Is(lerr, ErrNotSupported) {
				break
			}
			if port++; port > spec.last {
				port = spec.first
			}
		}
		return -1, "", attempts, fmt.Errorf("%w: %s: %w", ErrBindFailed, endpoint, lastErr)

	default:
		if err := h.native.Listen(endpoint); err != nil {
			return -1, "", 1, fmt.Errorf("%w: %s: %w", ErrBindFailed, endpoint, err)
		}
		return 0, endpoint, 1, nil
	}
}

// Unbind unbinds the socket from a formatted endpoint. It fails with
// ErrNotSupported when the native socket has no unbind operation.
func (h *Handle) Unbind(format string, args ...any) error {
	h.check()
	endpoint := expand(format, args)

	u, ok := h.native.(unbinder)
	if !ok {
		return fmt.Errorf("%w: unbind %s", ErrNotSupported, endpoint)
	}
	if err := u.Unbind(endpoint); err != nil {
		return fmt.Errorf("failed to unbind %s: %w", endpoint, err)
	}
	return nil
}

// Connect connects the socket to a formatted endpoint.
func (h *Handle) Connect(format string, args ...any) error {
	h.check()
	endpoint := expand(format, args)

	err := h.native.Dial(endpoint)
	h.opts.observer.ConnectCompleted(err)
	if err != nil {
		h.opts.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("connect failed")
		return fmt.Errorf("%w: %s: %w", ErrConnectFailed, endpoint, err)
	}
	return nil
}

// Disconnect disconnects the socket from a formatted endpoint. It fails with
// ErrNotSupported when the native socket has no disconnect operation.
func (h *Handle) Disconnect(format string, args ...any) error {
	h.check()
	endpoint := expand(format, args)

	d, ok := h.native.(disconnecter)
	if !ok {
		return fmt.Errorf("%w: disconnect %s", ErrNotSupported, endpoint)
	}
	if err := d.Disconnect(endpoint); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", endpoint, err)
	}
	return nil
}
