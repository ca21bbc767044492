package lib

import "testing"

type Logger interface {
	Print(a ...any)
	Println(a ...any)
	Printf(format string, a ...any)
}

type NoLog struct{}

func (l *NoLog) Print(a ...any)                 {}
func (l *NoLog) Println(a ...any)               {}
func (l *NoLog) Printf(format string, a ...any) {}

// OrNoLog returns a NoLog when logger is nil
func OrNoLog(logger Logger) Logger {
	if logger == nil {
		return &NoLog{}
	}
	return logger
}

type prefixLogger struct {
	logger Logger
	prefix string
}

// WithPrefix returns a logger adding prefix in front of every line
func WithPrefix(logger Logger, prefix string) Logger {
	return &prefixLogger{
		logger: OrNoLog(logger),
		prefix: prefix,
	}
}

func (l *prefixLogger) Print(a ...any) {
	l.logger.Print(append([]any{l.prefix + ": "}, a...)...)
}

func (l *prefixLogger) Println(a ...any) {
	l.logger.Println(append([]any{l.prefix + ":"}, a...)...)
}

func (l *prefixLogger) Printf(format string, a ...any) {
	l.logger.Printf(l.prefix+": "+format, a...)
}

type TestLogger struct {
	t      *testing.T
	prefix string
}

func NewTestLogger(t *testing.T, prefix string) *TestLogger {
	return &TestLogger{
		t:      t,
		prefix: prefix,
	}
}

func (l *TestLogger) Print(a ...any) {
	l.t.Helper()
	if l.prefix == "" {
		l.t.Log(a...)
	} else {
		l.t.Log(append([]any{l.prefix + ":"}, a...)...)
	}
}

func (l *TestLogger) Println(a ...any) {
	l.t.Helper()
	l.Print(a...)
}

func (l *TestLogger) Printf(format string, a ...any) {
	l.t.Helper()
	if l.prefix != "" {
		format = l.prefix + ": " + format
	}
	l.t.Logf(format, a...)
}
