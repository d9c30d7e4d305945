package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/kbukum/openaikit/errors"
)

// Option configures a Stream.
type Option func(*options)

type options struct {
	maxLineSize int
	onChunk     func()
	onFinish    func(chunks int, err error)
}

// WithMaxLineSize bounds a single stream line.
func WithMaxLineSize(n int) Option {
	return func(o *options) { o.maxLineSize = n }
}

// WithOnChunk registers a callback invoked after each decoded chunk.
func WithOnChunk(fn func()) Option {
	return func(o *options) { o.onChunk = fn }
}

// WithOnFinish registers a callback invoked once when the stream reaches a
// terminal state or is closed. err is nil for a clean end.
func WithOnFinish(fn func(chunks int, err error)) Option {
	return func(o *options) { o.onFinish = fn }
}

// Stream is a lazy, forward-only sequence of chunks decoded from an SSE
// body. Next must not be called concurrently. Close may be called from any
// goroutine and unblocks a pending Next.
type Stream[T any] struct {
	dec       *Decoder
	body      io.Closer
	opts      options
	chunks    atomic.Int64
	bodyOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
	finished  atomic.Bool
}

var errEnvelopeKey = []byte(`"error"`)

// NewStream creates a Stream over body. The stream owns body and closes it
// when it ends.
func NewStream[T any](body io.ReadCloser, opts ...Option) *Stream[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Stream[T]{
		dec:  NewDecoder(body, o.maxLineSize),
		body: body,
		opts: o,
	}
}

// Next returns the next chunk. ok is false once the stream has ended; an
// error is returned at most once and is always the last element.
func (s *Stream[T]) Next(ctx context.Context) (chunk T, ok bool, err error) {
	var zero T
	if s.finished.Load() {
		return zero, false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.dec.Fail()
		return zero, false, s.finish(errors.Canceled(ctxErr))
	}

	// A blocked read only returns once the body is closed.
	stop := context.AfterFunc(ctx, s.closeBody)
	data, err := s.dec.Next()
	if !stop() {
		s.dec.Fail()
		return zero, false, s.finish(errors.Canceled(ctx.Err()))
	}
	if s.finished.Load() {
		return zero, false, nil
	}
	if err == io.EOF {
		return zero, false, s.finish(nil)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Canceled(ctxErr)
		}
		return zero, false, s.finish(err)
	}

	if bytes.Contains(data, errEnvelopeKey) {
		if apiErr, isErr := errors.ParseStreamError(data); isErr {
			s.dec.Fail()
			return zero, false, s.finish(apiErr)
		}
	}

	if err := json.Unmarshal(data, &chunk); err != nil {
		s.dec.Fail()
		return zero, false, s.finish(errors.Deserialization(err, data))
	}

	s.chunks.Add(1)
	if s.opts.onChunk != nil {
		s.opts.onChunk()
	}
	return chunk, true, nil
}

// All returns an iterator over the remaining chunks. Iteration stops after
// the first error, which is yielded with a zero chunk. The stream is closed
// when iteration ends.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() { _ = s.Close() }()
		for {
			chunk, ok, err := s.Next(ctx)
			if err != nil {
				yield(chunk, err)
				return
			}
			if !ok {
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Collect drains the stream. On error it returns the chunks received so far
// together with the error.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for chunk, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
	return out, nil
}

// State returns the decoder state.
func (s *Stream[T]) State() State {
	return s.dec.State()
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream[T]) Close() error {
	s.release(nil)
	return s.closeErr
}

func (s *Stream[T]) finish(err error) error {
	s.finished.Store(true)
	s.release(err)
	return err
}

// release closes the body and reports the outcome exactly once.
func (s *Stream[T]) release(err error) {
	s.closeOnce.Do(func() {
		s.finished.Store(true)
		s.closeBody()
		if s.opts.onFinish != nil {
			s.opts.onFinish(int(s.chunks.Load()), err)
		}
	})
}

func (s *Stream[T]) closeBody() {
	s.bodyOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
}
