package arrow

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrNoRecords is returned when there is nothing to encode or decode.
var ErrNoRecords = errors.New("no records")

// Codec converts record batches to and from the IPC stream format.
type Codec struct {
	allocator memory.Allocator
}

// NewCodec creates a Codec using the default allocator.
func NewCodec() *Codec {
	return NewCodecWithAllocator(memory.DefaultAllocator)
}

// NewCodecWithAllocator creates a Codec whose decoded records are allocated
// from mem.
func NewCodecWithAllocator(mem memory.Allocator) *Codec {
	return &Codec{allocator: mem}
}

// Encode writes records, which must share a schema, as one IPC stream.
func (c *Codec) Encode(records ...arrow.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(records[0].Schema()), ipc.WithAllocator(c.allocator))
	defer writer.Close()

	for i, record := range records {
		if !record.Schema().Equal(records[0].Schema()) {
			return nil, fmt.Errorf("record %d: schema differs from record 0", i)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode reads every record of an IPC stream. The caller releases them.
func (c *Codec) Decode(data []byte) ([]arrow.Record, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
	}

	if reader.Err() != nil {
		Release(records)
		return nil, reader.Err()
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	return records, nil
}

// Release releases every record.
func Release(records []arrow.Record) {
	for _, r := range records {
		r.Release()
	}
}
