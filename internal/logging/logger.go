package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a Level. Unknown names
// fall back to LevelInfo and report ok=false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Fields is a bag of structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

// Entry is the JSON shape written for every log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

// sink is shared between a logger and its children so that writes to the
// same output are serialized.
type sink struct {
	mu     sync.Mutex
	output io.Writer
}

// Logger provides structured JSON logging.
type Logger struct {
	sink      *sink
	level     *levelVar
	component string
	fields    Fields
}

type levelVar struct {
	mu    sync.RWMutex
	level Level
}

func (v *levelVar) get() Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.level
}

func (v *levelVar) set(l Level) {
	v.mu.Lock()
	v.level = l
	v.mu.Unlock()
}

// New creates a Logger writing to stdout at INFO.
func New() *Logger {
	return &Logger{
		sink:  &sink{output: os.Stdout},
		level: &levelVar{level: LevelInfo},
	}
}

// SetOutput sets the output writer. Children share the new writer.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.sink.mu.Lock()
	l.sink.output = w
	l.sink.mu.Unlock()
	return l
}

// SetLevel sets the minimum log level. Children observe the change.
func (l *Logger) SetLevel(level Level) *Logger {
	l.level.set(level)
	return l
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	child := l.clone()
	child.component = name
	return child
}

// WithField returns a child logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a child logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	child := l.clone()
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (l *Logger) clone() *Logger {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		sink:      l.sink,
		level:     l.level,
		component: l.component,
		fields:    fields,
	}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(LevelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(LevelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(LevelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(LevelError, msg, fields...) }

func (l *Logger) log(level Level, msg string, extra ...Fields) {
	if level < l.level.get() {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
	}

	if n := len(l.fields) + len(extra); n > 0 {
		merged := make(Fields, len(l.fields))
		for k, v := range l.fields {
			merged[k] = v
		}
		for _, f := range extra {
			for k, v := range f {
				if err, ok := v.(error); ok {
					v = err.Error()
				}
				merged[k] = v
			}
		}
		if len(merged) > 0 {
			entry.Fields = merged
		}
	}

	data, err := json.Marshal(entry)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if err != nil {
		_, _ = io.WriteString(l.sink.output, entry.Timestamp+" "+entry.Level+" "+msg+"\n")
		return
	}
	data = append(data, '\n')
	_, _ = l.sink.output.Write(data)
}

// Default is the package-level logger.
var Default = New()

// SetDefaultLevel sets the level for the default logger.
func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...Fields) { Default.Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { Default.Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { Default.Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { Default.Error(msg, fields...) }
