// Package term prints leveled, colored messages on the terminal.
package term

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var (
	lvl              = LevelInfo
	output io.Writer = os.Stdout
	colors           = map[Level]pterm.Color{
		LevelTrace: pterm.FgGray,
		LevelDebug: pterm.FgLightCyan,
		LevelInfo:  pterm.FgLightGreen,
		LevelWarn:  pterm.FgYellow,
		LevelError: pterm.FgLightRed,
	}
)

func SetLevel(level Level) {
	lvl = level
}

// SetOutput redirects every message, nil restores stdout
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	output = w
}

// Enabled returns true when messages of this level are displayed. Errors always are.
func Enabled(level Level) bool {
	return level >= LevelError || level >= lvl
}

func write(level Level, a ...interface{}) {
	if !Enabled(level) {
		return
	}
	pterm.Fprintln(output, colors[level].Sprint(a...))
}

func writef(level Level, format string, a ...interface{}) {
	if !Enabled(level) {
		return
	}
	pterm.Fprintln(output, colors[level].Sprintf(format, a...))
}

func Debug(a ...interface{})                 { write(LevelDebug, a...) }
func Debugf(format string, a ...interface{}) { writef(LevelDebug, format, a...) }
func Info(a ...interface{})                  { write(LevelInfo, a...) }
func Infof(format string, a ...interface{})  { writef(LevelInfo, format, a...) }
func Warn(a ...interface{})                  { write(LevelWarn, a...) }
func Warnf(format string, a ...interface{})  { writef(LevelWarn, format, a...) }
func Error(a ...interface{})                 { write(LevelError, a...) }
func Errorf(format string, a ...interface{}) { writef(LevelError, format, a...) }
