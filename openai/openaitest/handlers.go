package openaitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SpeechBytes is the body returned by the speech endpoint.
var SpeechBytes = []byte("ID3\x04fake-mp3-frames")

const created = 1700000000

type fileRecord struct {
	meta    gin.H
	content []byte
}

func (s *Server) routes(g *gin.RouterGroup) {
	g.POST("/chat/completions", s.chatCompletions)
	g.POST("/completions", s.completions)
	g.POST("/embeddings", s.embeddings)
	g.POST("/moderations", s.moderations)

	g.GET("/models", s.listModels)
	g.GET("/models/:id", s.retrieveModel)
	g.DELETE("/models/:id", s.deleteModel)

	g.POST("/audio/transcriptions", s.transcribe)
	g.POST("/audio/translations", s.transcribe)
	g.POST("/audio/speech", s.speech)

	g.POST("/images/generations", s.images)
	g.POST("/images/edits", s.images)
	g.POST("/images/variations", s.images)

	g.POST("/files", s.uploadFile)
	g.GET("/files", s.listFiles)
	g.GET("/files/:id", s.retrieveFile)
	g.DELETE("/files/:id", s.deleteFile)
	g.GET("/files/:id/content", s.fileContent)

	g.POST("/fine_tuning/jobs", s.createJob)
	g.GET("/fine_tuning/jobs", s.listJobs)
	g.GET("/fine_tuning/jobs/:id", s.retrieveJob)
	g.POST("/fine_tuning/jobs/:id/cancel", s.cancelJob)
	g.GET("/fine_tuning/jobs/:id/events", s.listJobEvents)
}

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (s *Server) chatCompletions(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request_error", ""))
		return
	}
	if req.Stream {
		s.stream(c, "/chat/completions", defaultChatStream(req.Model))
		return
	}

	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": created,
		"model":   req.Model,
		"choices": []gin.H{{
			"index":         0,
			"message":       gin.H{"role": "assistant", "content": "echo: " + last},
			"finish_reason": "stop",
		}},
		"usage": gin.H{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	})
}

func defaultChatStream(model string) []string {
	chunk := func(delta string, finish any) string {
		b, _ := json.Marshal(gin.H{
			"id":      "chatcmpl-test",
			"object":  "chat.completion.chunk",
			"created": created,
			"model":   model,
			"choices": []gin.H{{"index": 0, "delta": gin.H{"content": delta}, "finish_reason": finish}},
		})
		return string(b)
	}
	return []string{chunk("Hel", nil), chunk("lo", "stop"), "[DONE]"}
}

func (s *Server) completions(c *gin.Context) {
	var req struct {
		Model  string `json:"model"`
		Prompt any    `json:"prompt"`
		Stream bool   `json:"stream"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request_error", ""))
		return
	}
	body := func(text string) gin.H {
		return gin.H{
			"id":      "cmpl-test",
			"object":  "text_completion",
			"created": created,
			"model":   req.Model,
			"choices": []gin.H{{"text": text, "index": 0, "finish_reason": "stop"}},
		}
	}
	if req.Stream {
		var events []string
		for _, piece := range []string{"once", " upon"} {
			b, _ := json.Marshal(body(piece))
			events = append(events, string(b))
		}
		s.stream(c, "/completions", append(events, "[DONE]"))
		return
	}
	c.JSON(http.StatusOK, body(fmt.Sprintf("completed: %v", req.Prompt)))
}

// stream writes the configured events for path, or def when none are set.
func (s *Server) stream(c *gin.Context, path string, def []string) {
	s.mu.Lock()
	events, ok := s.streams[path]
	s.mu.Unlock()
	if !ok {
		events = def
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	for _, ev := range events {
		if strings.HasPrefix(ev, ":") || strings.HasPrefix(ev, "event:") {
			_, _ = fmt.Fprintf(c.Writer, "%s\n", ev)
		} else {
			_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", ev)
		}
		c.Writer.Flush()
	}
}

func (s *Server) embeddings(c *gin.Context) {
	var req struct {
		Model string `json:"model"`
		Input any    `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request_error", ""))
		return
	}
	n := 1
	if inputs, ok := req.Input.([]any); ok {
		n = len(inputs)
	}
	data := make([]gin.H, n)
	for i := range data {
		data[i] = gin.H{"object": "embedding", "index": i, "embedding": []float64{0.1, 0.2, 0.3}}
	}
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  gin.H{"prompt_tokens": n, "total_tokens": n},
	})
}

func (s *Server) moderations(c *gin.Context) {
	var req struct {
		Input any `json:"input"`
	}
	_ = c.ShouldBindJSON(&req)
	flagged := strings.Contains(fmt.Sprint(req.Input), "violence")
	c.JSON(http.StatusOK, gin.H{
		"id":    "modr-test",
		"model": "text-moderation-latest",
		"results": []gin.H{{
			"flagged":         flagged,
			"categories":      gin.H{"violence": flagged},
			"category_scores": gin.H{"violence": map[bool]float64{true: 0.98, false: 0.01}[flagged]},
		}},
	})
}

func model(id string) gin.H {
	return gin.H{"id": id, "object": "model", "created": created, "owned_by": "openai"}
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   []gin.H{model("gpt-4o-mini"), model("whisper-1")},
	})
}

func (s *Server) retrieveModel(c *gin.Context) {
	c.JSON(http.StatusOK, model(c.Param("id")))
}

func (s *Server) deleteModel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "object": "model", "deleted": true})
}

func (s *Server) transcribe(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("file is required", "invalid_request_error", ""))
		return
	}
	defer func() { _ = file.Close() }()
	data, _ := io.ReadAll(file)

	text := fmt.Sprintf("%s (%d bytes)", header.Filename, len(data))
	switch c.PostForm("response_format") {
	case "text", "srt", "vtt":
		c.String(http.StatusOK, text)
	default:
		c.JSON(http.StatusOK, gin.H{"text": text, "language": c.DefaultPostForm("language", "english")})
	}
}

func (s *Server) speech(c *gin.Context) {
	c.Data(http.StatusOK, "audio/mpeg", SpeechBytes)
}

func (s *Server) images(c *gin.Context) {
	n := 1
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if v := c.PostForm("n"); v != "" {
			_, _ = fmt.Sscan(v, &n)
		}
	} else {
		var req struct {
			N *int `json:"n"`
		}
		if err := c.ShouldBindJSON(&req); err == nil && req.N != nil {
			n = *req.N
		}
	}
	data := make([]gin.H, n)
	for i := range data {
		data[i] = gin.H{"url": fmt.Sprintf("https://images.test/%d.png", i)}
	}
	c.JSON(http.StatusOK, gin.H{"created": created, "data": data})
}

func (s *Server) uploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("file is required", "invalid_request_error", ""))
		return
	}
	defer func() { _ = file.Close() }()
	content, _ := io.ReadAll(file)

	s.mu.Lock()
	s.nextFile++
	id := fmt.Sprintf("file-%d", s.nextFile)
	meta := gin.H{
		"id":         id,
		"object":     "file",
		"bytes":      len(content),
		"created_at": created,
		"filename":   header.Filename,
		"purpose":    c.PostForm("purpose"),
		"status":     "processed",
	}
	s.files[id] = fileRecord{meta: meta, content: content}
	s.mu.Unlock()

	c.JSON(http.StatusOK, meta)
}

func (s *Server) listFiles(c *gin.Context) {
	s.mu.Lock()
	data := make([]gin.H, 0, len(s.files))
	for _, f := range s.files {
		data = append(data, f.meta)
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

func (s *Server) lookupFile(c *gin.Context) (fileRecord, bool) {
	s.mu.Lock()
	f, ok := s.files[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, errorBody(
			fmt.Sprintf("No such File object: %s", c.Param("id")), "invalid_request_error", "",
		))
	}
	return f, ok
}

func (s *Server) retrieveFile(c *gin.Context) {
	if f, ok := s.lookupFile(c); ok {
		c.JSON(http.StatusOK, f.meta)
	}
}

func (s *Server) deleteFile(c *gin.Context) {
	if _, ok := s.lookupFile(c); !ok {
		return
	}
	s.mu.Lock()
	delete(s.files, c.Param("id"))
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "object": "file", "deleted": true})
}

func (s *Server) fileContent(c *gin.Context) {
	if f, ok := s.lookupFile(c); ok {
		c.Data(http.StatusOK, "application/octet-stream", f.content)
	}
}

// jobEvents are the status updates reported for every fake job.
var jobEvents = []string{
	"Validating training file",
	"Files validated, moving job to queued state",
	"Fine-tuning job started",
}

type jobRequest struct {
	Model           string          `json:"model"`
	TrainingFile    string          `json:"training_file"`
	Hyperparameters json.RawMessage `json:"hyperparameters"`
	Suffix          string          `json:"suffix"`
}

func (s *Server) createJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), "invalid_request_error", ""))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[req.TrainingFile]; !ok {
		c.JSON(http.StatusBadRequest, errorBody(
			fmt.Sprintf("invalid training_file: %s", req.TrainingFile), "invalid_request_error", "invalid_file",
		))
		return
	}

	hp := gin.H{"n_epochs": "auto"}
	if len(req.Hyperparameters) > 0 {
		_ = json.Unmarshal(req.Hyperparameters, &hp)
	}
	job := gin.H{
		"id":               fmt.Sprintf("ftjob-%d", len(s.jobs)+1),
		"object":           "fine_tuning.job",
		"created_at":       created,
		"model":            req.Model,
		"organization_id":  "org-test",
		"status":           "queued",
		"hyperparameters":  hp,
		"training_file":    req.TrainingFile,
		"result_files":     []string{},
		"fine_tuned_model": nil,
	}
	s.jobs = append(s.jobs, job)
	c.JSON(http.StatusOK, job)
}

func (s *Server) listJobs(c *gin.Context) {
	s.mu.Lock()
	ids := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		ids[i] = j["id"].(string)
	}
	from, to, more, ok := page(c, ids)
	var data []gin.H
	if ok {
		data = append([]gin.H{}, s.jobs[from:to]...)
	}
	s.mu.Unlock()
	if ok {
		c.JSON(http.StatusOK, gin.H{"object": "list", "data": data, "has_more": more})
	}
}

// lookupJob returns the job with the :id parameter. The caller holds s.mu.
func (s *Server) lookupJob(c *gin.Context) (gin.H, bool) {
	for _, j := range s.jobs {
		if j["id"] == c.Param("id") {
			return j, true
		}
	}
	c.JSON(http.StatusNotFound, errorBody(
		fmt.Sprintf("No such fine-tuning job: %s", c.Param("id")), "invalid_request_error", "",
	))
	return nil, false
}

func (s *Server) retrieveJob(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.lookupJob(c); ok {
		c.JSON(http.StatusOK, j)
	}
}

func (s *Server) cancelJob(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.lookupJob(c)
	if !ok {
		return
	}
	if j["status"] == "cancelled" {
		c.JSON(http.StatusBadRequest, errorBody("Job has already been cancelled", "invalid_request_error", ""))
		return
	}
	j["status"] = "cancelled"
	c.JSON(http.StatusOK, j)
}

func (s *Server) listJobEvents(c *gin.Context) {
	s.mu.Lock()
	_, ok := s.lookupJob(c)
	s.mu.Unlock()
	if !ok {
		return
	}

	id := c.Param("id")
	events := make([]gin.H, len(jobEvents))
	ids := make([]string, len(jobEvents))
	for i, msg := range jobEvents {
		ids[i] = fmt.Sprintf("%s-event-%d", id, i+1)
		events[i] = gin.H{
			"id":         ids[i],
			"object":     "fine_tuning.job.event",
			"created_at": created + i,
			"level":      "info",
			"message":    msg,
		}
	}
	if from, to, more, ok := page(c, ids); ok {
		c.JSON(http.StatusOK, gin.H{"object": "list", "data": events[from:to], "has_more": more})
	}
}

// page applies the after and limit query parameters to ids. It writes a 400
// response and returns ok=false for a malformed limit.
func page(c *gin.Context, ids []string) (from, to int, more, ok bool) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorBody("invalid limit: "+raw, "invalid_request_error", ""))
			return 0, 0, false, false
		}
		limit = n
	}
	if after := c.Query("after"); after != "" {
		for i, id := range ids {
			if id == after {
				from = i + 1
				break
			}
		}
	}
	to = min(from+limit, len(ids))
	return from, to, to < len(ids), true
}
