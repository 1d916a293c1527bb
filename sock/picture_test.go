package sock

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-zeromq/zmq4"
)

// newPipe returns a PULL reader bound to an ephemeral port and a PUSH writer
// connected to it.
func newPipe(t *testing.T) (reader, writer *Handle) {
	t.Helper()
	ctx := context.Background()

	reader, err := NewPull(ctx, "tcp://127.0.0.1:*")
	if err != nil {
		t.Fatalf("NewPull failed: %v", err)
	}
	writer, err = NewPush(ctx, reader.Endpoint())
	if err != nil {
		reader.Destroy()
		t.Fatalf("NewPush failed: %v", err)
	}
	t.Cleanup(func() {
		writer.Destroy()
		reader.Destroy()
	})
	return reader, writer
}

func TestPictureRoundTrip(t *testing.T) {
	reader, writer := newPipe(t)

	chunk := NewChunk([]byte("HELLO"))
	frame := Frame("WORLD")

	// first copy is read back as a raw message
	err := writer.SendPicture("isbcf", Int(12345), Str("This is a string"), Bytes("ABCDE"), chunk, frame)
	if err != nil {
		t.Fatalf("SendPicture failed: %v", err)
	}
	msg, err := reader.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if len(msg.Frames) != 5 {
		t.Fatalf("Expected 5 frames, got %d", len(msg.Frames))
	}
	if string(msg.Frames[0]) != "12345" {
		t.Errorf("Expected integer as decimal text, got %q", msg.Frames[0])
	}

	err = writer.SendPicture("isbcf", Int(12345), Str("This is a string"), Bytes("ABCDE"), chunk, frame)
	if err != nil {
		t.Fatalf("SendPicture failed: %v", err)
	}
	values, err := reader.RecvPicture("isbcf")
	if err != nil {
		t.Fatalf("RecvPicture failed: %v", err)
	}

	if values.Int(0) != 12345 {
		t.Errorf("Expected 12345, got %d", values.Int(0))
	}
	if values.Str(1) != "This is a string" {
		t.Errorf("Expected 'This is a string', got %q", values.Str(1))
	}
	if !bytes.Equal(values.Bytes(2), []byte("ABCDE")) || len(values.Bytes(2)) != 5 {
		t.Errorf("Expected ABCDE, got %q", values.Bytes(2))
	}
	if !bytes.Equal(values.Chunk(3).Data(), []byte("HELLO")) || values.Chunk(3).Size() != 5 {
		t.Errorf("Expected chunk HELLO, got %q", values.Chunk(3).Data())
	}
	if !bytes.Equal(values.Frame(4), []byte("WORLD")) || len(values.Frame(4)) != 5 {
		t.Errorf("Expected frame WORLD, got %q", values.Frame(4))
	}
	if values.Chunk(3) == chunk {
		t.Error("Decoded chunk should be a new chunk")
	}
}

func TestPictureNegativeInteger(t *testing.T) {
	conn := newChanConn()

	if err := Send(conn, "i", Int(-42)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	values, err := Recv(conn, "i")
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if values.Int(0) != -42 {
		t.Errorf("Expected -42, got %d", values.Int(0))
	}
}

func TestEncodeCopiesArguments(t *testing.T) {
	raw := []byte("ABCDE")
	chunk := NewChunk([]byte("HELLO"))
	frame := Frame("WORLD")

	msg := EncodePicture("bcf", Bytes(raw), chunk, frame)

	raw[0] = 'x'
	chunk.Data()[0] = 'x'
	frame[0] = 'x'

	expected := []string{"ABCDE", "HELLO", "WORLD"}
	for i, want := range expected {
		if string(msg.Frames[i]) != want {
			t.Errorf("Frame %d: expected %q, got %q", i, want, msg.Frames[i])
		}
	}
}

func TestNewChunkCopies(t *testing.T) {
	data := []byte("abc")
	chunk := NewChunk(data)
	data[0] = 'x'

	if string(chunk.Data()) != "abc" {
		t.Errorf("Expected chunk to own its data, got %q", chunk.Data())
	}
}

func TestDecodeFrameIsNotCopied(t *testing.T) {
	msg := zmq4.NewMsgFrom([]byte("raw"), []byte("segment"))

	values, err := DecodePicture("bf", msg)
	if err != nil {
		t.Fatalf("DecodePicture failed: %v", err)
	}
	if &values.Frame(1)[0] != &msg.Frames[1][0] {
		t.Error("Frame should reference the received segment")
	}
	if &values.Bytes(0)[0] == &msg.Frames[0][0] {
		t.Error("Bytes should be a fresh copy")
	}
}

func TestDecodeFrameCountMismatch(t *testing.T) {
	tests := []struct {
		name    string
		picture string
		msg     zmq4.Msg
	}{
		{"fewer frames", "iss", zmq4.NewMsgFrom([]byte("1"), []byte("a"))},
		{"more frames", "s", zmq4.NewMsgFrom([]byte("a"), []byte("b"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newChanConn()
			conn.c <- tt.msg

			values, err := Recv(conn, tt.picture)
			if !errors.Is(err, ErrPictureMismatch) {
				t.Errorf("Expected ErrPictureMismatch, got %v", err)
			}
			if values != nil {
				t.Errorf("Expected no values, got %v", values)
			}
		})
	}
}

func TestDecodeInvalidInteger(t *testing.T) {
	_, err := DecodePicture("i", zmq4.NewMsgString("twelve"))
	if !errors.Is(err, ErrInvalidInteger) {
		t.Errorf("Expected ErrInvalidInteger, got %v", err)
	}
}

func TestRecvFailure(t *testing.T) {
	conn := newChanConn()
	close(conn.c)

	if _, err := Recv(conn, "s"); err == nil {
		t.Error("Expected receive failure")
	}
}

func TestPictureProgrammingErrors(t *testing.T) {
	expectPanic(t, "invalid picture element 'x'", func() {
		EncodePicture("x", Int(1))
	})
	expectPanic(t, "takes 2 arguments, got 1", func() {
		EncodePicture("is", Int(1))
	})
	expectPanic(t, "picture element 's' given sock.Int", func() {
		EncodePicture("s", Int(1))
	})
	expectPanic(t, "nil chunk", func() {
		var chunk *Chunk
		EncodePicture("c", chunk)
	})

	conn := newChanConn()
	conn.c <- zmq4.NewMsgString("keep")
	expectPanic(t, "invalid picture element 'q'", func() {
		_, _ = Recv(conn, "sq")
	})
	if len(conn.c) != 1 {
		t.Error("An invalid picture should panic before receiving")
	}
}

func TestPictureHelper(t *testing.T) {
	got := Picture(Int(1), Str("a"), Bytes{}, NewChunk(nil), Frame{})
	if got != "isbcf" {
		t.Errorf("Expected 'isbcf', got %q", got)
	}
}

func TestEmptyPictureSendsNothing(t *testing.T) {
	h, s, _ := newFakeHandle(t, Push)
	defer h.Destroy()

	if err := h.SendPicture(""); err != nil {
		t.Fatalf("SendPicture failed: %v", err)
	}
	if len(s.sent) != 0 {
		t.Errorf("Expected nothing sent, got %d messages", len(s.sent))
	}
}

func FuzzDecodePicture(f *testing.F) {
	f.Add("isb", []byte("12"), []byte("text"), []byte{0, 1, 2})
	f.Add("cfi", []byte{}, []byte("x"), []byte("-7"))
	f.Add("zzz", []byte("a"), []byte("b"), []byte("c"))

	f.Fuzz(func(t *testing.T, picture string, a, b, c []byte) {
		for i := 0; i < len(picture); i++ {
			switch picture[i] {
			case 'i', 's', 'b', 'c', 'f':
			default:
				return
			}
		}

		values, err := DecodePicture(picture, zmq4.NewMsgFrom(a, b, c))
		if err != nil {
			return
		}
		if len(values) != len(picture) {
			t.Errorf("Expected %d values, got %d", len(picture), len(values))
		}
		if Picture(values...) != picture {
			t.Errorf("Expected picture %q, got %q", picture, Picture(values...))
		}
	})
}

func BenchmarkEncodePicture(b *testing.B) {
	chunk := NewChunk(bytes.Repeat([]byte("c"), 256))
	payload := bytes.Repeat([]byte("b"), 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = EncodePicture("isbcf", Int(i), Str("benchmark"), Bytes(payload), chunk, Frame(payload))
	}
}

func BenchmarkDecodePicture(b *testing.B) {
	msg := EncodePicture("isbcf", Int(12345), Str("benchmark"), Bytes("ABCDE"), NewChunk([]byte("HELLO")), Frame("WORLD"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodePicture("isbcf", msg); err != nil {
			b.Fatal(err)
		}
	}
}
