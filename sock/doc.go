// Package sock provides lifecycle-tagged socket handles over ZeroMQ.
//
// This package implements:
//   - Handle: a zmq4 socket plus its type, validity tag and last bound endpoint
//   - Bind/Connect with dynamic port selection ("tcp://host:*", "tcp://host:![first-last]")
//   - Attach: comma-separated endpoint lists with '@' (bind) and '>' (connect) sigils
//   - Pictures: multi-frame messages described by a format string ("isbcf")
//   - Signals: 8-byte status frames for rendezvous between goroutines
//   - Actor: a goroutine attached to a PAIR pipe
//
// A Handle is owned by a single goroutine. Calls on a destroyed handle panic.
package sock
