package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/openaikit/errors"
)

const defaultFileContentType = "application/octet-stream"

// fileContentTypes maps upload extensions to a fixed content type so the
// encoded body does not depend on the host's MIME tables.
var fileContentTypes = map[string]string{
	".flac":  "audio/flac",
	".m4a":   "audio/mp4",
	".mp3":   "audio/mpeg",
	".mp4":   "audio/mp4",
	".mpeg":  "audio/mpeg",
	".mpga":  "audio/mpeg",
	".ogg":   "audio/ogg",
	".wav":   "audio/wav",
	".webm":  "audio/webm",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".webp":  "image/webp",
	".json":  "application/json",
	".jsonl": "application/jsonl",
	".txt":   "text/plain",
	".pdf":   "application/pdf",
}

// fileContentType returns the content type for filename.
func fileContentType(filename string) string {
	if ct, ok := fileContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return defaultFileContentType
}

// encodeForm renders parts in order and returns the body and content-type header.
// File sources are resolved here; a missing file yields a KindIO error.
func encodeForm(form FormPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range form.Parts {
		switch part := p.(type) {
		case TextPart:
			if err := w.WriteField(part.Name, part.Value); err != nil {
				return nil, "", errors.Serialization(err)
			}
		case FilePart:
			data, err := readSource(part.Input.Source)
			if err != nil {
				return nil, "", err
			}
			if err := writeFile(w, part.Field, part.Input.Filename, data); err != nil {
				return nil, "", errors.Serialization(err)
			}
		default:
			return nil, "", errors.Serialization(fmt.Errorf("unsupported form part %T", p))
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Serialization(err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field, filename string, data []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(field)+`"; filename="`+escapeQuotes(filename)+`"`)
	header.Set("Content-Type", fileContentType(filename))

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// readSource loads the bytes behind src.
func readSource(src Source) ([]byte, error) {
	switch s := src.(type) {
	case BytesSource:
		return s.Data, nil
	case ReaderSource:
		if s.Reader == nil {
			return nil, errors.IO("<reader>", fmt.Errorf("nil reader"))
		}
		data, err := io.ReadAll(s.Reader)
		if err != nil {
			return nil, errors.IO("<reader>", err)
		}
		return data, nil
	case PathSource:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, errors.IO(s.Path, err)
		}
		return data, nil
	case nil:
		return nil, errors.IO("<none>", fmt.Errorf("file input has no source"))
	default:
		return nil, errors.Serialization(fmt.Errorf("unsupported source %T", src))
	}
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
