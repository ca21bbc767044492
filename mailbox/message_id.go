package mailbox

import (
	"errors"
	"strconv"
	"strings"
)

var (
	EmptyMessageID MessageID
)

// MessageID is either a numeric UID (IMAP, bolt, mock store) or a string key (maildir)
type MessageID struct {
	uid uint64
	key string
}

func NewMessageIDFromUint(uid uint64) MessageID {
	return MessageID{
		uid: uid,
	}
}

func NewMessageIDFromString(key string) MessageID {
	return MessageID{
		key: key,
	}
}

func (i MessageID) IsZero() bool {
	return i.uid == 0 && i.key == ""
}

func (i MessageID) IsUint() bool {
	return i.uid > 0
}

func (i MessageID) IsString() bool {
	return i.key != ""
}

func (i MessageID) AsUint() uint64 {
	return i.uid
}

func (i MessageID) AsString() string {
	return i.key
}

func (i MessageID) String() string {
	if i.IsUint() {
		return strconv.FormatUint(i.uid, 10)
	}
	return i.key
}

// MarshalText encodes a numeric UID as "u:<uid>" and a key as "k:<key>"
func (i MessageID) MarshalText() ([]byte, error) {
	switch {
	case i.IsUint():
		return []byte("u:" + strconv.FormatUint(i.uid, 10)), nil
	case i.IsString():
		return []byte("k:" + i.key), nil
	}
	return []byte{}, nil
}

func (i *MessageID) UnmarshalText(text []byte) error {
	value := string(text)
	switch {
	case value == "":
		*i = EmptyMessageID
	case strings.HasPrefix(value, "u:"):
		uid, err := strconv.ParseUint(value[2:], 10, 64)
		if err != nil {
			return err
		}
		*i = NewMessageIDFromUint(uid)
	case strings.HasPrefix(value, "k:"):
		*i = NewMessageIDFromString(value[2:])
	default:
		return errors.New("invalid message ID encoding")
	}
	return nil
}

func (i MessageID) MarshalBinary() ([]byte, error) {
	return i.MarshalText()
}

func (i *MessageID) UnmarshalBinary(data []byte) error {
	return i.UnmarshalText(data)
}
