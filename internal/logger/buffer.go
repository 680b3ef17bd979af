// internal/logger/buffer.go
package logger

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
	Fields    map[string]interface{}
}

// LogBuffer is a thread-safe ring buffer fed with JSON log lines. The TUI
// reads it instead of letting log output break the screen.
type LogBuffer struct {
	mu           sync.Mutex
	ringBuffer   []LogEntry
	maxSize      int
	currentIndex int
	wrapped      bool
	totalEntries uint64
}

// NewLogBuffer creates a new log buffer with the specified size
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &LogBuffer{
		ringBuffer: make([]LogEntry, maxSize),
		maxSize:    maxSize,
	}
}

// Write accepts zap JSON encoder output, one entry per line.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimSpace(p), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		lb.add(parseLine(line))
	}
	return len(p), nil
}

func (lb *LogBuffer) Sync() error {
	return nil
}

// Add adds a new log entry to the buffer
func (lb *LogBuffer) Add(level, message string, fields map[string]interface{}) {
	lb.add(LogEntry{Timestamp: time.Now(), Level: level, Message: message, Fields: fields})
}

func (lb *LogBuffer) add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ringBuffer[lb.currentIndex] = entry
	lb.currentIndex = (lb.currentIndex + 1) % lb.maxSize
	if lb.currentIndex == 0 {
		lb.wrapped = true
	}
	lb.totalEntries++
}

// GetRecentLogs returns up to limit newest entries, oldest first.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count := lb.currentIndex
	start := 0
	if lb.wrapped {
		count = lb.maxSize
		start = lb.currentIndex
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ringBuffer[(start+i)%lb.maxSize])
	}
	return logs
}

// Total returns how many entries were ever added.
func (lb *LogBuffer) Total() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.totalEntries
}

func parseLine(line []byte) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{Timestamp: time.Now(), Level: "INFO", Message: string(line)}
	}

	entry := LogEntry{Timestamp: time.Now(), Fields: map[string]interface{}{}}
	for k, v := range raw {
		switch k {
		case "level":
			entry.Level, _ = v.(string)
		case "msg":
			entry.Message, _ = v.(string)
		case "timestamp":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", s); err == nil {
					entry.Timestamp = ts
				}
			}
		case "caller", "stacktrace", "logger":
		default:
			entry.Fields[k] = v
		}
	}
	return entry
}
