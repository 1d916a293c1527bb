package sock

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-zeromq/zmq4"
)

// Element is one picture argument and maps to exactly one frame. The
// implementations are Int ('i'), Str ('s'), Bytes ('b'), *Chunk ('c') and
// Frame ('f').
type Element interface {
	Code() byte
	frame() []byte
}

// Int is sent as decimal text.
type Int int

// Str is sent verbatim.
type Str string

// Bytes is a raw buffer; its length travels with it.
type Bytes []byte

// Frame is a message segment. Received frames are handed over without a copy.
type Frame []byte

// Chunk is an owned byte buffer.
type Chunk struct {
	data []byte
}

// NewChunk returns a chunk holding a copy of data.
func NewChunk(data []byte) *Chunk {
	return &Chunk{data: bytes.Clone(data)}
}

// Data returns the chunk contents.
func (c *Chunk) Data() []byte { return c.data }

// Size returns the chunk length in bytes.
func (c *Chunk) Size() int { return len(c.data) }

func (Int) Code() byte    { return 'i' }
func (Str) Code() byte    { return 's' }
func (Bytes) Code() byte  { return 'b' }
func (*Chunk) Code() byte { return 'c' }
func (Frame) Code() byte  { return 'f' }

func (v Int) frame() []byte   { return []byte(strconv.Itoa(int(v))) }
func (v Str) frame() []byte   { return []byte(v) }
func (v Bytes) frame() []byte { return bytes.Clone(v) }
func (v Frame) frame() []byte { return bytes.Clone(v) }

func (c *Chunk) frame() []byte {
	if c == nil {
		panic("sock: nil chunk in picture")
	}
	return bytes.Clone(c.data)
}

// Picture returns the picture string describing args.
func Picture(args ...Element) string {
	picture := make([]byte, len(args))
	for i, arg := range args {
		picture[i] = arg.Code()
	}
	return string(picture)
}

func checkPicture(picture string) {
	for i := 0; i < len(picture); i++ {
		switch picture[i] {
		case 'i', 's', 'b', 'c', 'f':
		default:
			panic(fmt.Sprintf("sock: invalid picture element '%c'", picture[i]))
		}
	}
}

// EncodePicture builds the message for picture and args. It panics if the
// picture has an unknown element or does not describe args; pictures are
// expected to be literals.
func EncodePicture(picture string, args ...Element) zmq4.Msg {
	checkPicture(picture)
	if len(picture) != len(args) {
		panic(fmt.Sprintf("sock: picture %q takes %d arguments, got %d", picture, len(picture), len(args)))
	}

	frames := make([][]byte, len(args))
	for i, arg := range args {
		if arg == nil || arg.Code() != picture[i] {
			panic(fmt.Sprintf("sock: picture element '%c' given %T", picture[i], arg))
		}
		frames[i] = arg.frame()
	}
	return zmq4.NewMsgFrom(frames...)
}

// DecodePicture extracts values from msg according to picture. Frames of
// msg are referenced, not copied, by Frame values.
func DecodePicture(picture string, msg zmq4.Msg) (Values, error) {
	checkPicture(picture)
	if len(msg.Frames) != len(picture) {
		return nil, fmt.Errorf("%w: picture %q has %d elements, message has %d frames",
			ErrPictureMismatch, picture, len(picture), len(msg.Frames))
	}

	values := make(Values, len(picture))
	for i, frame := range msg.Frames {
		switch picture[i] {
		case 'i':
			n, err := strconv.Atoi(string(frame))
			if err != nil {
				return nil, fmt.Errorf("%w: frame %d: %q", ErrInvalidInteger, i, frame)
			}
			values[i] = Int(n)
		case 's':
			values[i] = Str(frame)
		case 'b':
			values[i] = Bytes(bytes.Clone(frame))
		case 'c':
			values[i] = NewChunk(frame)
		case 'f':
			values[i] = Frame(frame)
		}
	}
	return values, nil
}

// Send sends a picture message on c. Arguments are copied, never retained.
// An empty picture sends nothing.
func Send(c Conn, picture string, args ...Element) error {
	msg := EncodePicture(picture, args...)
	if len(msg.Frames) == 0 {
		return nil
	}
	return c.Send(msg)
}

// Recv receives one message from c and decodes it according to picture.
// A message whose frame count differs from the picture is dropped and
// ErrPictureMismatch is returned.
func Recv(c Conn, picture string) (Values, error) {
	checkPicture(picture)

	msg, err := c.Recv()
	if err != nil {
		return nil, err
	}
	return DecodePicture(picture, msg)
}

// SendPicture is Send on h.
func (h *Handle) SendPicture(picture string, args ...Element) error {
	h.check()
	return Send(h, picture, args...)
}

// RecvPicture is Recv on h.
func (h *Handle) RecvPicture(picture string) (Values, error) {
	h.check()
	return Recv(h, picture)
}

// Values holds decoded picture elements in order. The accessors panic if the
// element at i has a different kind.
type Values []Element

// Int returns element i of an 'i' picture.
func (v Values) Int(i int) int { return int(v[i].(Int)) }

// Str returns element i of an 's' picture.
func (v Values) Str(i int) string { return string(v[i].(Str)) }

// Bytes returns element i of a 'b' picture.
func (v Values) Bytes(i int) []byte { return v[i].(Bytes) }

// Chunk returns element i of a 'c' picture.
func (v Values) Chunk(i int) *Chunk { return v[i].(*Chunk) }

// Frame returns element i of an 'f' picture.
func (v Values) Frame(i int) Frame { return v[i].(Frame) }
