// Package logger provides structured logging for openaikit using zerolog.
//
// The client logs one debug line per logical call and one warning per retry.
// Library users who do not configure a logger get a warn-level logger on
// stderr, so nothing is printed on the happy path.
//
// # Configuration
//
//	logger:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&logger.Config{Level: "debug"}, "openai")
//	log.WithComponent("chat").Debug("call completed", logger.Fields("status", 200))
package logger
