package lib

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordLogger struct {
	lines []string
}

func (l *recordLogger) Print(a ...any)   { l.lines = append(l.lines, fmt.Sprint(a...)) }
func (l *recordLogger) Println(a ...any) { l.lines = append(l.lines, fmt.Sprint(a...)) }
func (l *recordLogger) Printf(format string, a ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, a...))
}

func TestPrefixLogger(t *testing.T) {
	recorder := &recordLogger{}
	log := WithPrefix(recorder, "handle")
	log.Printf("opened %q", "INBOX")
	log.Print("closed")
	assert.Equal(t, []string{`handle: opened "INBOX"`, "handle: closed"}, recorder.lines)
}

func TestOrNoLog(t *testing.T) {
	assert.IsType(t, &NoLog{}, OrNoLog(nil))
	recorder := &recordLogger{}
	assert.Same(t, recorder, OrNoLog(recorder))
}
