// Package httpclient provides the transport and request encoder used by the
// openai client: a pooled HTTP/2-capable Transport with TLS support, and an
// encoder that turns a Request (JSON or multipart payload) into wire bytes.
//
// Requests are prepared once and can be sent any number of times. Form
// bodies, including lazily read files, are rendered by Prepare so every retry
// replays identical bytes.
//
// # Basic Usage
//
//	tr, err := httpclient.NewTransport(httpclient.Config{Timeout: 30 * time.Second})
//
//	prepared, err := httpclient.Prepare(httpclient.Request{
//	    Method: http.MethodPost,
//	    URL:    "https://api.openai.com/v1/audio/transcriptions",
//	    Body: httpclient.NewForm().
//	        File("file", httpclient.FileInput("/tmp/speech.wav")).
//	        Text("model", "whisper-1").
//	        Payload(),
//	})
//
//	resp, err := tr.Do(ctx, prepared)
//
// The sse subpackage decodes text/event-stream bodies returned by
// Transport.Open.
package httpclient
