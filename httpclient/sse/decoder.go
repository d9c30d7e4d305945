// Package sse decodes OpenAI-style Server-Sent Events streams.
//
// A stream is a sequence of lines. Lines starting with "data:" carry one JSON
// chunk each; the payload "[DONE]" is the end-of-stream sentinel. Every other
// line (blank separators, comments, event or id fields) is ignored.
//
// Decoder works on raw payloads; Stream decodes them into typed chunks.
package sse

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/kbukum/openaikit/errors"
)

const (
	// DefaultMaxLineSize bounds a single line of the stream.
	DefaultMaxLineSize = 4 << 20

	readBufferSize = 64 << 10
)

var (
	dataPrefix = []byte("data:")
	sentinel   = []byte("[DONE]")
)

// State is the decoder state.
type State int

const (
	// AwaitingLine means the decoder is between events.
	AwaitingLine State = iota
	// HaveEvent means a payload was just handed out.
	HaveEvent
	// Done means the stream ended cleanly. Terminal.
	Done
	// Failed means the stream ended with an error. Terminal.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case AwaitingLine:
		return "awaiting_line"
	case HaveEvent:
		return "have_event"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decoder splits a byte stream into data payloads.
type Decoder struct {
	r       *bufio.Reader
	state   State
	maxLine int
}

// NewDecoder creates a Decoder reading from r. maxLineSize <= 0 selects
// DefaultMaxLineSize.
func NewDecoder(r io.Reader, maxLineSize int) *Decoder {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	return &Decoder{
		r:       bufio.NewReaderSize(r, readBufferSize),
		maxLine: maxLineSize,
	}
}

// State returns the current state.
func (d *Decoder) State() State {
	return d.state
}

// Next returns the payload of the next data line. It returns io.EOF when the
// stream ends, either at the sentinel or when the connection closes. A read
// failure is returned once as a KindTransport error and an oversized line as
// a KindDeserialization error; afterwards Next returns io.EOF.
func (d *Decoder) Next() ([]byte, error) {
	if d.state == Done || d.state == Failed {
		return nil, io.EOF
	}
	d.state = AwaitingLine

	for {
		line, err := d.readLine()
		if err == io.EOF {
			d.state = Done
			return nil, io.EOF
		}
		if err != nil {
			d.state = Failed
			return nil, err
		}

		data, ok := parseDataLine(line)
		if !ok {
			continue
		}
		if bytes.Equal(data, sentinel) {
			d.state = Done
			return nil, io.EOF
		}

		d.state = HaveEvent
		return data, nil
	}
}

// Fail moves the decoder to the Failed state.
func (d *Decoder) Fail() {
	d.state = Failed
}

var errLineTooLong = stderrors.New("sse: line too long")

// readLine returns the next line including its terminator. A final line
// without a newline is returned as is; io.EOF follows on the next call.
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := d.r.ReadSlice('\n')
		if len(line)+len(frag) > d.maxLine {
			return nil, errors.Deserialization(fmt.Errorf("%w: exceeds %d bytes", errLineTooLong, d.maxLine), nil)
		}
		line = append(line, frag...)

		switch {
		case err == nil:
			return line, nil
		case stderrors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF:
			if len(line) > 0 {
				return line, nil
			}
			return nil, io.EOF
		default:
			return nil, errors.Transport(err)
		}
	}
}

// parseDataLine returns the trimmed payload of a "data:" line.
func parseDataLine(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	return bytes.TrimSpace(line[len(dataPrefix):]), true
}
