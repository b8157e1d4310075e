package logging

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"sync"

	"github.com/fatih/color"
)

// Logger is the main logger type. A nil *Logger still functions, but
// discards everything, errors included - this lets callers pass a logger
// through optional subsystems (like the watcher) without nil-checking at
// every call site.
type Logger struct {
	// mu guards the embedded standard logger, which is not itself safe for
	// concurrent use across Go versions.
	mu sync.Mutex
	// output is the underlying standard library logger used for formatting
	// and writing lines.
	output *log.Logger
	// level is the minimum level at which this logger (and its subloggers)
	// emit output.
	level Level
	// prefix is any dotted prefix accumulated via Sublogger.
	prefix string
}

// NewLogger creates a new root logger that writes to w at the given level.
func NewLogger(level Level, w io.Writer) *Logger {
	return &Logger{
		output: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// Level returns the logger's effective level.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelDisabled
	}
	return l.level
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level and output.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		output: l.output,
		level:  l.level,
		prefix: prefix,
	}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

func (l *Logger) line(level Level, text string) {
	if !l.enabled(level) {
		return
	}
	if l.prefix != "" {
		text = fmt.Sprintf("[%s] %s", l.prefix, text)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Output(4, text)
}

// Info logs basic execution information.
func (l *Logger) Info(v ...interface{}) { l.line(LevelInfo, fmt.Sprint(v...)) }

// Infof logs basic execution information with Printf semantics.
func (l *Logger) Infof(format string, v ...interface{}) { l.line(LevelInfo, fmt.Sprintf(format, v...)) }

// Debug logs advanced execution information.
func (l *Logger) Debug(v ...interface{}) { l.line(LevelDebug, fmt.Sprint(v...)) }

// Debugf logs advanced execution information with Printf semantics.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.line(LevelDebug, fmt.Sprintf(format, v...))
}

// Trace logs low-level execution information.
func (l *Logger) Trace(v ...interface{}) { l.line(LevelTrace, fmt.Sprint(v...)) }

// Tracef logs low-level execution information with Printf semantics.
func (l *Logger) Tracef(format string, v ...interface{}) {
	l.line(LevelTrace, fmt.Sprintf(format, v...))
}

// Warn logs a non-fatal error with a yellow warning prefix.
func (l *Logger) Warn(err error) {
	if !l.enabled(LevelWarn) {
		return
	}
	l.line(LevelWarn, color.YellowString("warning: %v", err))
}

// Warnf logs a non-fatal, freeform warning with a yellow prefix.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if !l.enabled(LevelWarn) {
		return
	}
	l.line(LevelWarn, color.YellowString("warning: "+format, v...))
}

// Error logs a fatal or otherwise serious error with a red error prefix.
func (l *Logger) Error(err error) {
	if !l.enabled(LevelError) {
		return
	}
	l.line(LevelError, color.RedString("error: %v", err))
}

// Writer returns an io.Writer that logs each line written to it at the
// specified level. If the level is disabled for this logger, the returned
// writer discards its input to avoid the overhead of line-splitting.
func (l *Logger) Writer(level Level) io.Writer {
	if !l.enabled(level) {
		return ioutil.Discard
	}
	return &lineWriter{logger: l, level: level}
}

// lineWriter is an io.Writer that splits its input into lines and forwards
// each to a Logger at a fixed level.
type lineWriter struct {
	logger *Logger
	level  Level
	buffer []byte
}

func (w *lineWriter) Write(data []byte) (int, error) {
	w.buffer = append(w.buffer, data...)
	for {
		index := -1
		for i, b := range w.buffer {
			if b == '\n' {
				index = i
				break
			}
		}
		if index == -1 {
			break
		}
		line := w.buffer[:index]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		w.logger.line(w.level, string(line))
		w.buffer = w.buffer[index+1:]
	}
	return len(data), nil
}
