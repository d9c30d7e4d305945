package openai

import (
	"context"
	"net/http"

	"github.com/kbukum/openaikit/errors"
	"github.com/kbukum/openaikit/httpclient"
	"github.com/kbukum/openaikit/validation"
)

// AudioResponseFormat selects the transcription output format.
type AudioResponseFormat string

const (
	AudioFormatJSON        AudioResponseFormat = "json"
	AudioFormatText        AudioResponseFormat = "text"
	AudioFormatSRT         AudioResponseFormat = "srt"
	AudioFormatVerboseJSON AudioResponseFormat = "verbose_json"
	AudioFormatVTT         AudioResponseFormat = "vtt"
)

// TimestampGranularity selects word or segment timestamps.
type TimestampGranularity string

const (
	GranularityWord    TimestampGranularity = "word"
	GranularitySegment TimestampGranularity = "segment"
)

// TranscriptionRequest is the multipart body of POST /audio/transcriptions.
type TranscriptionRequest struct {
	File                   httpclient.Input
	Model                  string
	Prompt                 *string
	ResponseFormat         *AudioResponseFormat
	Temperature            *float64
	Language               *string
	TimestampGranularities []TimestampGranularity
}

// Form lays out the parts as file, model, then the optional fields.
func (r *TranscriptionRequest) Form() httpclient.FormPayload {
	granularities := make([]string, len(r.TimestampGranularities))
	for i, g := range r.TimestampGranularities {
		granularities[i] = string(g)
	}
	return httpclient.NewForm().
		File("file", r.File).
		Text("model", r.Model).
		OptText("prompt", r.Prompt).
		OptText("response_format", (*string)(r.ResponseFormat)).
		OptFloat("temperature", r.Temperature).
		OptText("language", r.Language).
		Repeat("timestamp_granularities[]", granularities).
		Payload()
}

// TranslationRequest is the multipart body of POST /audio/translations.
type TranslationRequest struct {
	File           httpclient.Input
	Model          string
	Prompt         *string
	ResponseFormat *AudioResponseFormat
	Temperature    *float64
}

// Form lays out the parts as file, model, then the optional fields.
func (r *TranslationRequest) Form() httpclient.FormPayload {
	return httpclient.NewForm().
		File("file", r.File).
		Text("model", r.Model).
		OptText("prompt", r.Prompt).
		OptText("response_format", (*string)(r.ResponseFormat)).
		OptFloat("temperature", r.Temperature).
		Payload()
}

// Transcription is the JSON transcription result. Segments and Words are
// only present for verbose_json.
type Transcription struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language,omitempty"`
	Duration float64                `json:"duration,omitempty"`
	Segments []TranscriptionSegment `json:"segments,omitempty"`
	Words    []TranscriptionWord    `json:"words,omitempty"`
}

// TranscriptionSegment is a timed span of text.
type TranscriptionSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionWord is a timed word.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SpeechRequest is the body of POST /audio/speech.
type SpeechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
}

// Audio groups the audio endpoints.
type Audio struct {
	c *Client
}

func validateAudio(model string, file httpclient.Input, temperature *float64) error {
	return validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", model).
		Custom(file.Source != nil, "file", "is required").
		FloatRange("temperature", temperature, 0, 1).
		Err()
}

// Transcribe converts speech to text in the spoken language. Only the JSON
// response formats can be used here; use TranscribeRaw for text, srt or vtt.
func (a *Audio) Transcribe(ctx context.Context, req TranscriptionRequest) (*Transcription, error) {
	if err := validateAudio(req.Model, req.File, req.Temperature); err != nil {
		return nil, err
	}
	return doForm[Transcription](ctx, a.c, transcriptionEndpoint(req.Model), req.Form())
}

// TranscribeRaw returns the transcription body as sent by the server.
func (a *Audio) TranscribeRaw(ctx context.Context, req TranscriptionRequest) ([]byte, error) {
	if err := validateAudio(req.Model, req.File, req.Temperature); err != nil {
		return nil, err
	}
	return a.c.doRaw(ctx, transcriptionEndpoint(req.Model), req.Form())
}

func transcriptionEndpoint(model string) endpoint {
	return endpoint{
		operation: "audio.transcribe",
		method:    http.MethodPost,
		path:      "/audio/transcriptions",
		model:     model,
	}
}

// Translate converts speech into English text.
func (a *Audio) Translate(ctx context.Context, req TranslationRequest) (*Transcription, error) {
	if err := validateAudio(req.Model, req.File, req.Temperature); err != nil {
		return nil, err
	}
	return doForm[Transcription](ctx, a.c, endpoint{
		operation: "audio.translate",
		method:    http.MethodPost,
		path:      "/audio/translations",
		model:     req.Model,
	}, req.Form())
}

// Speech synthesizes audio and returns the encoded bytes.
func (a *Audio) Speech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	err := validation.NewWithKind(errors.KindInvalidArgument).
		Required("model", req.Model).
		Required("input", req.Input).
		Required("voice", req.Voice).
		FloatRange("speed", req.Speed, 0.25, 4).
		Err()
	if err != nil {
		return nil, err
	}
	return a.c.doRaw(ctx, endpoint{
		operation: "audio.speech",
		method:    http.MethodPost,
		path:      "/audio/speech",
		model:     req.Model,
	}, httpclient.JSONPayload{Value: req})
}
