package sock

import (
	"encoding/binary"

	"github.com/go-zeromq/zmq4"
)

// A signal is a single 8-byte frame holding signalMagic plus a status in the
// low byte, little-endian.
const (
	signalMagic uint64 = 0x7766554433221100
	signalMask  uint64 = 0xffffffffffffff00
)

// Signal sends status on c as a signal message. By convention 0 means OK.
func Signal(c Conn, status byte) error {
	frame := make([]byte, 8)
	binary.LittleEndian.PutUint64(frame, signalMagic|uint64(status))
	return c.Send(zmq4.NewMsg(frame))
}

// Wait blocks until a signal arrives on c and returns its status. Other
// messages are discarded. Wait only fails when the receive fails, e.g.
// because the socket was closed.
func Wait(c Conn) (byte, error) {
	return wait(c, nil)
}

func wait(c Conn, discarded func(zmq4.Msg)) (byte, error) {
	for {
		msg, err := c.Recv()
		if err != nil {
			return 0, err
		}
		if status, ok := signalStatus(msg); ok {
			return status, nil
		}
		if discarded != nil {
			discarded(msg)
		}
	}
}

// signalStatus reports whether msg is a signal and returns its status.
func signalStatus(msg zmq4.Msg) (byte, bool) {
	if len(msg.Frames) != 1 || len(msg.Frames[0]) != 8 {
		return 0, false
	}
	value := binary.LittleEndian.Uint64(msg.Frames[0])
	if value&signalMask != signalMagic {
		return 0, false
	}
	return byte(value), true
}

// Signal is Signal on h.
func (h *Handle) Signal(status byte) error {
	h.check()
	return Signal(h, status)
}

// Wait is Wait on h. Discarded messages are logged at trace level.
func (h *Handle) Wait() (byte, error) {
	h.check()
	return wait(h, func(msg zmq4.Msg) {
		h.opts.logger.Trace().Int("frames", len(msg.Frames)).Msg("discarded non-signal message")
	})
}
