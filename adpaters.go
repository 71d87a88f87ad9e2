package ubjson

import (
	"bufio"
	"bytes"
)

// bufioWriterAdapter and bytesBufferWriterAdapter let Writer (writer.go) —
// the only building block behind Sink — target a *bufio.Writer or
// *bytes.Buffer without allocating a second layer of buffering on top of
// one that already exists.
type (
	bufioWriterAdapter       struct{ *bufio.Writer }
	bytesBufferWriterAdapter struct{ *bytes.Buffer }
)

func (w *bufioWriterAdapter) Close() error       { return nil }
func (w *bytesBufferWriterAdapter) Close() error { return nil }
func (w *bytesBufferWriterAdapter) Flush() error { return nil }
func (w *bytesBufferWriterAdapter) Size() int    { return w.Available() }
