package httpclient

import (
	"io"
	"path/filepath"
	"strconv"
)

// Payload is a request body. It is either a JSONPayload or a FormPayload.
type Payload interface {
	isPayload()
}

// JSONPayload is serialized with encoding/json.
type JSONPayload struct {
	Value any
}

// FormPayload is encoded as multipart/form-data with parts in declared order.
type FormPayload struct {
	Parts []Part
}

func (JSONPayload) isPayload() {}
func (FormPayload) isPayload() {}

// Part is one multipart field: a TextPart or a FilePart.
type Part interface {
	isPart()
}

// TextPart is a plain form field.
type TextPart struct {
	Name  string
	Value string
}

// FilePart is a file field. The content is read when the form is encoded.
type FilePart struct {
	Field string
	Input Input
}

func (TextPart) isPart() {}
func (FilePart) isPart() {}

// Input is file content plus the filename sent to the server.
type Input struct {
	Filename string
	Source   Source
}

// Source supplies file bytes: BytesSource, ReaderSource or PathSource.
type Source interface {
	isSource()
}

// BytesSource is an in-memory buffer.
type BytesSource struct {
	Data []byte
}

// ReaderSource is a caller-supplied stream. It is read once, when the
// request is prepared.
type ReaderSource struct {
	Reader io.Reader
}

// PathSource is a local file opened when the request is prepared.
type PathSource struct {
	Path string
}

func (BytesSource) isSource()  {}
func (ReaderSource) isSource() {}
func (PathSource) isSource()   {}

// FileInput returns an Input read lazily from path. The filename is the
// path's base name.
func FileInput(path string) Input {
	return Input{Filename: filepath.Base(path), Source: PathSource{Path: path}}
}

// BytesInput returns an Input backed by data.
func BytesInput(filename string, data []byte) Input {
	return Input{Filename: filename, Source: BytesSource{Data: data}}
}

// ReaderInput returns an Input backed by r.
func ReaderInput(filename string, r io.Reader) Input {
	return Input{Filename: filename, Source: ReaderSource{Reader: r}}
}

// Form builds an ordered FormPayload. Optional setters skip nil values so
// unset fields are omitted from the wire.
type Form struct {
	parts []Part
}

// NewForm creates an empty Form.
func NewForm() *Form {
	return &Form{}
}

// File appends a file part.
func (f *Form) File(field string, in Input) *Form {
	f.parts = append(f.parts, FilePart{Field: field, Input: in})
	return f
}

// OptFile appends a file part when in is non-nil.
func (f *Form) OptFile(field string, in *Input) *Form {
	if in != nil {
		f.File(field, *in)
	}
	return f
}

// Text appends a text part.
func (f *Form) Text(name, value string) *Form {
	f.parts = append(f.parts, TextPart{Name: name, Value: value})
	return f
}

// OptText appends a text part when v is non-nil.
func (f *Form) OptText(name string, v *string) *Form {
	if v != nil {
		f.Text(name, *v)
	}
	return f
}

// OptInt appends an integer part when v is non-nil.
func (f *Form) OptInt(name string, v *int) *Form {
	if v != nil {
		f.Text(name, strconv.Itoa(*v))
	}
	return f
}

// OptFloat appends a float part when v is non-nil.
func (f *Form) OptFloat(name string, v *float64) *Form {
	if v != nil {
		f.Text(name, strconv.FormatFloat(*v, 'f', -1, 64))
	}
	return f
}

// Repeat appends one text part per value, all under the same name.
func (f *Form) Repeat(name string, values []string) *Form {
	for _, v := range values {
		f.Text(name, v)
	}
	return f
}

// Payload returns the accumulated parts.
func (f *Form) Payload() FormPayload {
	parts := make([]Part, len(f.parts))
	copy(parts, f.parts)
	return FormPayload{Parts: parts}
}
