// Package arrow carries Apache Arrow record batches over hierasock handles.
// Each message is an "sf" picture: a topic string followed by one frame
// holding an Arrow IPC stream.
package arrow
