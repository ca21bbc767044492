package mailbox

import (
	"io"
	"time"
)

// MessageProperties are the message attributes a backend keeps alongside the body
type MessageProperties struct {
	// The message flags.
	Flags []string
	// The date the message was received by the server.
	InternalDate time.Time
	// The message size (zero when unknown).
	Size uint32
	// The message Hash (if available)
	Hash []byte
}

// Message is a message in transit between two backends
type Message struct {
	MessageProperties
	// The message unique identifier.
	Uid MessageID
	// The message body. The receiver must close it.
	Body io.ReadCloser
}
