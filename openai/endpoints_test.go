package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/openai/openaitest"
)

func TestCompletions(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	resp, err := c.Completions().Create(ctx, CompletionRequest{Model: "gpt-3.5-turbo-instruct", Prompt: "once"})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "completed: once", resp.Choices[0].Text)
	assert.Equal(t, "/v1/completions", srv.LastRequest().Path)

	_, err = c.Completions().Create(ctx, CompletionRequest{Model: "m", Prompt: "x", Stream: true})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	stream, err := c.Completions().CreateStream(ctx, CompletionRequest{Model: "m", Prompt: "x"})
	require.NoError(t, err)
	chunks, err := stream.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "once", chunks[0].Choices[0].Text)
	assert.Equal(t, " upon", chunks[1].Choices[0].Text)
}

func TestEmbeddings(t *testing.T) {
	c, srv := newTestClient(t)

	resp, err := c.Embeddings().Create(context.Background(), EmbeddingRequest{
		Model:      "text-embedding-3-small",
		Input:      []string{"a", "b"},
		Dimensions: Int(3),
	})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Data[1].Index)
	assert.Len(t, resp.Data[0].Embedding, 3)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(srv.LastRequest().Body, &sent))
	assert.Equal(t, []any{"a", "b"}, sent["input"])

	_, err = c.Embeddings().Create(context.Background(), EmbeddingRequest{Model: "m"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestModerations(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.Moderations().Create(context.Background(), ModerationRequest{Input: "some violence"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Flagged)
	assert.True(t, resp.Results[0].Categories["violence"])

	_, err = c.Moderations().Create(context.Background(), ModerationRequest{})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestModels(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	list, err := c.Models().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, http.MethodGet, srv.LastRequest().Method)
	assert.Empty(t, srv.LastRequest().Body)

	m, err := c.Models().Retrieve(ctx, "ft:gpt-4o:acme")
	require.NoError(t, err)
	assert.Equal(t, "ft:gpt-4o:acme", m.ID)

	del, err := c.Models().Delete(ctx, "ft:gpt-4o:acme")
	require.NoError(t, err)
	assert.True(t, del.Deleted)
	assert.Equal(t, http.MethodDelete, srv.LastRequest().Method)

	_, err = c.Models().Retrieve(ctx, "")
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestAudio_Transcribe(t *testing.T) {
	c, srv := newTestClient(t)

	format := AudioFormatVerboseJSON
	resp, err := c.Audio().Transcribe(context.Background(), TranscriptionRequest{
		File:                   httpclient.BytesInput("clip.mp3", []byte("0123456789")),
		Model:                  "whisper-1",
		Language:               String("de"),
		Temperature:            Float(0.5),
		ResponseFormat:         &format,
		TimestampGranularities: []TimestampGranularity{GranularityWord, GranularitySegment},
	})
	require.NoError(t, err)
	assert.Equal(t, "clip.mp3 (10 bytes)", resp.Text)
	assert.Equal(t, "de", resp.Language)

	req := srv.LastRequest()
	assert.Equal(t, "/v1/audio/transcriptions", req.Path)
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Equal(t, []string{
		"file", "model", "response_format", "temperature", "language",
		"timestamp_granularities[]", "timestamp_granularities[]",
	}, req.PartNames())

	file, ok := req.FormValue("file")
	require.True(t, ok)
	assert.Equal(t, "clip.mp3", file.Filename)
	assert.Equal(t, "0123456789", string(file.Value))

	temp, _ := req.FormValue("temperature")
	assert.Equal(t, "0.5", string(temp.Value))
}

func TestAudio_TranscribeFromPath(t *testing.T) {
	c, srv := newTestClient(t)
	path := filepath.Join(t.TempDir(), "speech.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	raw, err := c.Audio().TranscribeRaw(context.Background(), TranscriptionRequest{
		File:           httpclient.FileInput(path),
		Model:          "whisper-1",
		ResponseFormat: (*AudioResponseFormat)(String(string(AudioFormatText))),
	})
	require.NoError(t, err)
	assert.Equal(t, "speech.wav (4 bytes)", string(raw))

	file, _ := srv.LastRequest().FormValue("file")
	assert.Equal(t, "speech.wav", file.Filename)
}

func TestAudio_MissingFile(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.Audio().Transcribe(context.Background(), TranscriptionRequest{
		File:  httpclient.FileInput(filepath.Join(t.TempDir(), "missing.mp3")),
		Model: "whisper-1",
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIO))
	assert.Contains(t, err.Error(), "missing.mp3")
	assert.Zero(t, srv.RequestCount())

	_, err = c.Audio().Translate(context.Background(), TranslationRequest{Model: "whisper-1"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
	assert.Zero(t, srv.RequestCount())
}

func TestAudio_Translate(t *testing.T) {
	c, srv := newTestClient(t)

	resp, err := c.Audio().Translate(context.Background(), TranslationRequest{
		File:   httpclient.BytesInput("fr.mp3", []byte("abc")),
		Model:  "whisper-1",
		Prompt: String("context"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fr.mp3 (3 bytes)", resp.Text)

	req := srv.LastRequest()
	assert.Equal(t, "/v1/audio/translations", req.Path)
	assert.Equal(t, []string{"file", "model", "prompt"}, req.PartNames())
}

func TestAudio_Speech(t *testing.T) {
	c, srv := newTestClient(t)

	audio, err := c.Audio().Speech(context.Background(), SpeechRequest{
		Model: "tts-1",
		Input: "hello",
		Voice: "alloy",
	})
	require.NoError(t, err)
	assert.Equal(t, openaitest.SpeechBytes, audio)
	assert.Equal(t, "application/json", srv.LastRequest().Header.Get("Content-Type"))

	_, err = c.Audio().Speech(context.Background(), SpeechRequest{Model: "tts-1", Input: "x", Voice: "alloy", Speed: Float(10)})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}

func TestImages(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	resp, err := c.Images().Create(ctx, ImageRequest{Prompt: "a cat", N: Int(2), Size: ImageSize512})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)

	_, err = c.Images().Create(ctx, ImageRequest{Prompt: "a cat", ResponseFormat: "gif"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))

	mask := httpclient.BytesInput("mask.png", []byte("mask"))
	edit, err := c.Images().Edit(ctx, ImageEditRequest{
		Image:  httpclient.BytesInput("cat.png", []byte("png")),
		Prompt: "add a hat",
		Mask:   &mask,
		N:      Int(1),
		Size:   String(ImageSize256),
	})
	require.NoError(t, err)
	assert.Len(t, edit.Data, 1)
	req := srv.LastRequest()
	assert.Equal(t, "/v1/images/edits", req.Path)
	assert.Equal(t, []string{"image", "prompt", "mask", "n", "size"}, req.PartNames())
	img, _ := req.FormValue("image")
	assert.Equal(t, "cat.png", img.Filename)

	variation, err := c.Images().Variation(ctx, ImageVariationRequest{
		Image: httpclient.ReaderInput("cat.png", strings.NewReader("png")),
		N:     Int(3),
	})
	require.NoError(t, err)
	assert.Len(t, variation.Data, 3)
	assert.Equal(t, []string{"image", "n"}, srv.LastRequest().PartNames())
}

func TestFiles(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	content := []byte(`{"prompt":"a","completion":"b"}` + "\n")
	f, err := c.Files().Create(ctx, FileRequest{
		File:    httpclient.BytesInput("train.jsonl", content),
		Purpose: "fine-tune",
	})
	require.NoError(t, err)
	assert.Equal(t, "train.jsonl", f.Filename)
	assert.Equal(t, int64(len(content)), f.Bytes)
	assert.Equal(t, "fine-tune", f.Purpose)
	assert.Equal(t, []string{"file", "purpose"}, srv.LastRequest().PartNames())

	list, err := c.Files().List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)

	got, err := c.Files().Retrieve(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	raw, err := c.Files().RetrieveContent(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, content, raw)
	assert.Equal(t, "/v1/files/"+f.ID+"/content", srv.LastRequest().Path)

	del, err := c.Files().Delete(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, del.Deleted)

	_, err = c.Files().Retrieve(ctx, f.ID)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindAPI))
	assert.Contains(t, err.Error(), "No such File object")

	_, err = c.Files().Retrieve(ctx, "")
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
	_, err = c.Files().Create(ctx, FileRequest{File: httpclient.BytesInput("a", nil)})
	assert.True(t, errors.IsKind(err, errors.KindInvalidArgument))
}
