// Package logging builds the zerolog loggers used by the command line tools.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

type Options struct {
	Level zerolog.Level
	Color bool

	// Component is added to every event when set.
	Component string
}

// New returns a JSON logger on w with time and caller hooks attached.
func New(w io.Writer, opts Options) zerolog.Logger {
	zctx := zerolog.New(w).Level(opts.Level).With()
	if opts.Component != "" {
		zctx = zctx.Str("component", opts.Component)
	}
	return zctx.Logger().
		Hook(TimeHook{}).
		Hook(CallerHook{WithColor: opts.Color})
}

// TimeHook stamps events with millisecond precision UTC time.
type TimeHook struct {
	Format string
}

func (h TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := h.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000Z"
	}
	e.Str("time", time.Now().UTC().Format(format))
}

// CallerHook adds a short package:file:line caller field.
type CallerHook struct {
	WithColor bool
}

// hookFrames is the number of frames between Run and the logging call site.
const hookFrames = 3

func (h CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(hookFrames)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	e.Str("caller", FormatCaller(packageOf(fn.Name()), file, line, h.WithColor))
}

func packageOf(funcName string) string {
	lastSlash := strings.LastIndexByte(funcName, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	if dot := strings.IndexByte(funcName[lastSlash:], '.'); dot >= 0 {
		return funcName[:lastSlash+dot]
	}
	return funcName
}

// FormatCaller renders pkg:file.go:line, bold file and red line when colorized.
func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}
	if !colorize {
		return fmt.Sprintf("%s:%s:%d", pkg, file, line)
	}
	bold := color.New(color.Bold)
	num := color.New(color.FgHiRed, color.Bold)
	sep := color.New(color.Faint)
	bold.EnableColor()
	num.EnableColor()
	sep.EnableColor()
	return pkg + sep.Sprint(":") + bold.Sprint(file) + sep.Sprint(":") + num.Sprintf("%d", line)
}

// LineWriter forwards every complete line written to it as one log event.
// It is used for the stderr of child processes.
type LineWriter struct {
	mu     sync.Mutex
	logger zerolog.Logger
	level  zerolog.Level
	buf    bytes.Buffer
}

func NewLineWriter(logger zerolog.Logger, level zerolog.Level) *LineWriter {
	return &LineWriter{logger: logger, level: level}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line string) {
	if line == "" {
		return
	}
	w.logger.WithLevel(w.level).Msg(line)
}
