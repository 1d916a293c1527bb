package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/hierasock/sock"
)

// recordPicture is topic, IPC stream.
const recordPicture = "sf"

// Sender publishes record batches on a connection.
type Sender struct {
	conn  sock.Conn
	codec *Codec
}

// NewSender creates a Sender writing to conn.
func NewSender(conn sock.Conn, codec *Codec) *Sender {
	if codec == nil {
		codec = NewCodec()
	}
	return &Sender{conn: conn, codec: codec}
}

// Send encodes records as one message under topic.
func (s *Sender) Send(topic string, records ...arrow.Record) error {
	data, err := s.codec.Encode(records...)
	if err != nil {
		return err
	}
	return sock.Send(s.conn, recordPicture, sock.Str(topic), sock.Frame(data))
}

// Receiver reads record batches from a connection.
type Receiver struct {
	conn  sock.Conn
	codec *Codec
}

// NewReceiver creates a Receiver reading from conn.
func NewReceiver(conn sock.Conn, codec *Codec) *Receiver {
	if codec == nil {
		codec = NewCodec()
	}
	return &Receiver{conn: conn, codec: codec}
}

// Recv blocks for the next message and returns its topic and records. The
// caller releases the records.
func (r *Receiver) Recv() (string, []arrow.Record, error) {
	values, err := sock.Recv(r.conn, recordPicture)
	if err != nil {
		return "", nil, err
	}

	records, err := r.codec.Decode(values.Frame(1))
	if err != nil {
		return "", nil, err
	}
	return values.Str(0), records, nil
}
