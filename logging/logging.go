package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/muesli/termenv"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu     *sync.Mutex
	debug  *bool
	prefix string
	out    *log.Logger
	err    *log.Logger
	levels map[string]string
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewLogger(os.Stdout, os.Stderr, prefix, debug)
}

// NewLogger writes debug/info lines to out and warn/error lines to errOut.
// Level tags are coloured only when errOut is a terminal.
func NewLogger(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		mu:     &sync.Mutex{},
		debug:  &debug,
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
		levels: levelTags(errOut),
	}
}

func levelTags(w io.Writer) map[string]string {
	term := termenv.NewOutput(w)
	tag := func(level string, color string) string {
		if term.Profile == termenv.Ascii {
			return level
		}
		return term.String(level).Foreground(term.Color(color)).Bold().String()
	}
	return map[string]string{
		"DEBUG": tag("DEBUG", "8"),
		"INFO":  tag("INFO", "4"),
		"WARN":  tag("WARN", "3"),
		"ERROR": tag("ERROR", "1"),
	}
}

// WithPrefix returns a logger sharing output and debug switch but tagging
// lines with a different prefix.
func (l *DefaultLogger) WithPrefix(prefix string) *DefaultLogger {
	if l.prefix != "" {
		prefix = l.prefix + "/" + prefix
	}
	return &DefaultLogger{
		mu:     l.mu,
		debug:  l.debug,
		prefix: prefix,
		out:    l.out,
		err:    l.err,
		levels: l.levels,
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	*l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	tag := l.levels[level]
	if tag == "" {
		tag = level
	}
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, tag, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", tag, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.prefixf("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

// Sub derives a prefixed logger when l supports it and returns l unchanged
// otherwise. A nil logger yields a nop logger.
func Sub(l Logger, prefix string) Logger {
	switch v := l.(type) {
	case nil:
		return NewNop()
	case *DefaultLogger:
		return v.WithPrefix(prefix)
	}
	return l
}

// OrNop never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

type nopLogger struct{}

func NewNop() Logger                                   { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}
