package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// CapturingLogger records log lines so tests can assert on warnings.
type CapturingLogger struct {
	mu    sync.Mutex
	lines []string
}

func NewCapturingLogger() *CapturingLogger {
	return &CapturingLogger{}
}

func (l *CapturingLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, args))
}

func (l *CapturingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }
func (l *CapturingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *CapturingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *CapturingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }

// Contains reports whether any recorded line contains substr.
func (l *CapturingLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
