package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/openaikit/errors"
)

type testChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func chunkLine(id, content string) string {
	return fmt.Sprintf("data: {\"id\":%q,\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", id, content)
}

func TestStream_NChunksThenEnd(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < n; i++ {
				b.WriteString(chunkLine(fmt.Sprint(i), "tok"))
			}
			b.WriteString("data: [DONE]\n\n")
			body := newMockBody(b.String())

			s := NewStream[testChunk](body)
			got, err := s.Collect(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != n {
				t.Fatalf("got %d chunks, want %d", len(got), n)
			}
			for i, c := range got {
				if c.ID != fmt.Sprint(i) {
					t.Errorf("chunk %d id = %q", i, c.ID)
				}
			}
			if s.State() != Done {
				t.Errorf("state = %s, want done", s.State())
			}
			if body.closed != 1 {
				t.Errorf("body closed %d times, want 1", body.closed)
			}
		})
	}
}

func TestStream_MalformedChunk(t *testing.T) {
	// Malformed at position k=3: two chunks, one error, then the end.
	body := newMockBody(chunkLine("0", "a") + chunkLine("1", "b") + "data: {not json\n\n" + chunkLine("3", "d") + "data: [DONE]\n\n")
	s := NewStream[testChunk](body)
	ctx := context.Background()

	var chunks int
	var errs []error
	for i := 0; i < 10; i++ {
		_, ok, err := s.Next(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			break
		}
		chunks++
	}

	if chunks != 2 {
		t.Errorf("got %d chunks, want 2", chunks)
	}
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !apperrors.IsKind(errs[0], apperrors.KindDeserialization) {
		t.Errorf("expected deserialization error, got %v", errs[0])
	}
	if s.State() != Failed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestStream_EmptyChoicesPassedThrough(t *testing.T) {
	body := newMockBody("data: {\"id\":\"x\",\"choices\":[]}\n\n" + chunkLine("y", "hi") + "data: [DONE]\n\n")
	got, err := NewStream[testChunk](body).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if len(got[0].Choices) != 0 {
		t.Errorf("expected empty choices, got %+v", got[0].Choices)
	}
}

func TestStream_ErrorEnvelope(t *testing.T) {
	body := newMockBody(chunkLine("0", "a") +
		"data: {\"error\":{\"message\":\"The server had an error\",\"type\":\"server_error\"}}\n\n" +
		chunkLine("2", "c"))
	got, err := NewStream[testChunk](body).Collect(context.Background())

	if len(got) != 1 {
		t.Errorf("got %d chunks before the error, want 1", len(got))
	}
	if !apperrors.IsKind(err, apperrors.KindAPI) {
		t.Fatalf("expected API error, got %v", err)
	}
	apiErr, ok := apperrors.AsAPIError(err)
	if !ok || apiErr.Type != "server_error" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestStream_ContentMentioningErrorIsNotAnEnvelope(t *testing.T) {
	body := newMockBody(chunkLine("0", `the "error" word`) + "data: [DONE]\n\n")
	got, err := NewStream[testChunk](body).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Choices[0].Delta.Content != `the "error" word` {
		t.Errorf("unexpected chunks %+v", got)
	}
}

func TestStream_TransportError(t *testing.T) {
	r := &failingReader{prefix: strings.NewReader(chunkLine("0", "a")), err: errors.New("unexpected EOF")}
	body := &mockReadCloser{Reader: r}
	got, err := NewStream[testChunk](body).Collect(context.Background())

	if len(got) != 1 {
		t.Errorf("got %d chunks, want 1", len(got))
	}
	if !apperrors.IsKind(err, apperrors.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestStream_ContextCanceled(t *testing.T) {
	body := newMockBody(chunkLine("0", "a") + chunkLine("1", "b"))
	s := NewStream[testChunk](body)

	ctx, cancel := context.WithCancel(context.Background())
	if _, ok, err := s.Next(ctx); !ok || err != nil {
		t.Fatalf("first Next() = %v, %v", ok, err)
	}
	cancel()

	_, ok, err := s.Next(ctx)
	if ok || !apperrors.IsKind(err, apperrors.KindTransport) {
		t.Fatalf("expected cancellation error, got ok=%v err=%v", ok, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if _, ok, err := s.Next(context.Background()); ok || err != nil {
		t.Errorf("expected clean end after failure, got ok=%v err=%v", ok, err)
	}
	if body.closed != 1 {
		t.Errorf("body closed %d times, want 1", body.closed)
	}
}

type nextResult struct {
	ok  bool
	err error
}

// stalledStream returns a stream that has delivered one chunk and then
// waits on a silent connection.
func stalledStream(t *testing.T, opts ...Option) (*Stream[testChunk], *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	go func() { _, _ = pw.Write([]byte(chunkLine("0", "a"))) }()

	s := NewStream[testChunk](pr, opts...)
	if _, ok, err := s.Next(context.Background()); !ok || err != nil {
		t.Fatalf("first Next() = %v, %v", ok, err)
	}
	return s, pw
}

func TestStream_DeadlineUnblocksPendingRead(t *testing.T) {
	var finishErr error
	s, _ := stalledStream(t, WithOnFinish(func(_ int, err error) { finishErr = err }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan nextResult, 1)
	go func() {
		_, ok, err := s.Next(ctx)
		done <- nextResult{ok, err}
	}()

	select {
	case r := <-done:
		if r.ok || !apperrors.IsKind(r.err, apperrors.KindTransport) {
			t.Fatalf("expected cancellation error, got ok=%v err=%v", r.ok, r.err)
		}
		if !errors.Is(r.err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded in chain, got %v", r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next still blocked after the context expired")
	}

	if !apperrors.IsKind(finishErr, apperrors.KindTransport) {
		t.Errorf("OnFinish err = %v, want cancellation", finishErr)
	}
	if s.State() != Failed {
		t.Errorf("state = %v, want Failed", s.State())
	}
	if _, ok, err := s.Next(context.Background()); ok || err != nil {
		t.Errorf("expected clean end after cancellation, got ok=%v err=%v", ok, err)
	}
}

func TestStream_CloseUnblocksPendingRead(t *testing.T) {
	finished := 0
	s, _ := stalledStream(t, WithOnFinish(func(int, error) { finished++ }))

	done := make(chan nextResult, 1)
	go func() {
		_, ok, err := s.Next(context.Background())
		done <- nextResult{ok, err}
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case r := <-done:
		if r.ok || r.err != nil {
			t.Errorf("expected clean end after Close, got ok=%v err=%v", r.ok, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next still blocked after Close")
	}
	if finished != 1 {
		t.Errorf("OnFinish called %d times, want 1", finished)
	}
}

func TestStream_AllEarlyBreakCloses(t *testing.T) {
	body := newMockBody(chunkLine("0", "a") + chunkLine("1", "b") + chunkLine("2", "c"))
	s := NewStream[testChunk](body)

	seen := 0
	for _, err := range s.All(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen++
		if seen == 1 {
			break
		}
	}
	if body.closed != 1 {
		t.Errorf("body closed %d times, want 1", body.closed)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if body.closed != 1 {
		t.Errorf("Close must be idempotent, closed %d times", body.closed)
	}
}

func TestStream_Callbacks(t *testing.T) {
	var onChunk int
	var finishedChunks int
	var finishedErr error
	var finishCalls int

	body := newMockBody(chunkLine("0", "a") + chunkLine("1", "b") + "data: [DONE]\n\n")
	s := NewStream[testChunk](body,
		WithOnChunk(func() { onChunk++ }),
		WithOnFinish(func(chunks int, err error) {
			finishCalls++
			finishedChunks = chunks
			finishedErr = err
		}),
	)
	if _, err := s.Collect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Close()

	if onChunk != 2 {
		t.Errorf("onChunk called %d times, want 2", onChunk)
	}
	if finishCalls != 1 || finishedChunks != 2 || finishedErr != nil {
		t.Errorf("onFinish calls=%d chunks=%d err=%v", finishCalls, finishedChunks, finishedErr)
	}
}

func TestStream_OnFinishReportsError(t *testing.T) {
	var finishedErr error
	body := newMockBody("data: nope\n\n")
	s := NewStream[testChunk](body, WithOnFinish(func(_ int, err error) { finishedErr = err }))
	_, _ = s.Collect(context.Background())
	if !apperrors.IsKind(finishedErr, apperrors.KindDeserialization) {
		t.Errorf("expected deserialization error in onFinish, got %v", finishedErr)
	}
}

func TestStream_MaxLineSize(t *testing.T) {
	body := newMockBody("data: " + strings.Repeat("x", 64) + "\n")
	_, err := NewStream[testChunk](body, WithMaxLineSize(16)).Collect(context.Background())
	if !apperrors.IsKind(err, apperrors.KindDeserialization) {
		t.Fatalf("expected deserialization error, got %v", err)
	}
}
