// Package debug writes per-request artifacts to disk when debugging is
// enabled: the inbound request, the built upstream payload, the raw upstream
// response, the emitted SSE, and a summary.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const baseDir = "debug-logs"

type Logger struct {
	enabled    bool
	sseEnabled bool
	dir        string
	sseFile    *os.File
	mu         sync.Mutex
	startTime  time.Time
}

func New(enabled bool, sseEnabled bool) *Logger {
	if !enabled {
		return &Logger{enabled: false}
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	dir := filepath.Join(baseDir, timestamp)
	os.MkdirAll(dir, 0755)

	return &Logger{
		enabled:    true,
		sseEnabled: sseEnabled,
		dir:        dir,
		startTime:  time.Now(),
	}
}

// CleanupAllLogs clears the debug directory. Called once on startup.
func CleanupAllLogs() {
	os.RemoveAll(baseDir)
	os.MkdirAll(baseDir, 0755)
}

func (l *Logger) Dir() string {
	if !l.enabled {
		return ""
	}
	return l.dir
}

// LogIncomingRequest records the inbound OpenAI request.
func (l *Logger) LogIncomingRequest(req interface{}) {
	l.writeJSON("1_openai_request.json", req)
}

// LogUpstreamRequest records the payload sent to the upstream endpoint.
func (l *Logger) LogUpstreamRequest(url string, body interface{}) {
	l.writeJSON("2_upstream_request.json", map[string]interface{}{
		"url":  url,
		"body": body,
	})
}

// LogUpstreamResponse records the raw upstream response payload.
func (l *Logger) LogUpstreamResponse(status int, payload interface{}) {
	l.writeJSON("3_upstream_response.json", map[string]interface{}{
		"status":  status,
		"payload": payload,
	})
}

// LogOutputSSE appends one emitted SSE data line.
func (l *Logger) LogOutputSSE(data string) {
	if !l.enabled || !l.sseEnabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sseFile == nil {
		f, err := os.OpenFile(filepath.Join(l.dir, "4_client_sse.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		l.sseFile = f
	}

	elapsed := time.Since(l.startTime).Milliseconds()
	fmt.Fprintf(l.sseFile, "[%dms] data: %s\n", elapsed, data)
}

// LogSummary records the request outcome.
func (l *Logger) LogSummary(model string, streamed bool, textLen int, duration time.Duration) {
	l.writeJSON("5_summary.json", map[string]interface{}{
		"model":       model,
		"streamed":    streamed,
		"text_length": textLen,
		"duration_ms": duration.Milliseconds(),
	})
}

func (l *Logger) Close() {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sseFile != nil {
		l.sseFile.Close()
		l.sseFile = nil
	}
}

func (l *Logger) writeJSON(filename string, data interface{}) {
	if !l.enabled {
		return
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(l.dir, filename), jsonData, 0644)
}
