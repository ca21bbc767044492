package mailbox

import (
	"strings"

	"github.com/creativeprojects/mailmock/lib"
)

type Info struct {
	// The server's path separator.
	Delimiter string
	// The mailbox name.
	Name string
}

func NewInfo(delimiter string, segments ...string) Info {
	return Info{
		Delimiter: delimiter,
		Name:      strings.Join(segments, delimiter),
	}
}

func ChangeDelimiter(info Info, delimiter string) Info {
	return Info{
		Delimiter: delimiter,
		Name:      lib.VerifyDelimiter(info.Name, info.Delimiter, delimiter),
	}
}

// Segments splits the name on the delimiter
func (i Info) Segments() []string {
	if i.Name == "" {
		return nil
	}
	if i.Delimiter == "" {
		return []string{i.Name}
	}
	return strings.Split(i.Name, i.Delimiter)
}
