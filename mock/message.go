package mock

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime/v2"
)

// Message is a message stored in a folder. Its content is read-only,
// only the flags can change.
type Message struct {
	id           uint64
	folder       *Folder
	header       textproto.Header
	body         []byte
	internalDate time.Time
	hash         []byte
	size         uint32

	seqNum   atomic.Uint32
	expunged atomic.Bool

	mu    sync.RWMutex
	flags map[string]bool
}

func newMessage(folder *Folder, id uint64, header textproto.Header, body []byte, date time.Time, hash []byte, flags []string) *Message {
	msg := &Message{
		id:           id,
		folder:       folder,
		header:       header,
		body:         body,
		internalDate: date,
		hash:         hash,
		flags:        make(map[string]bool, len(flags)),
	}
	for _, flag := range lib.CanonicalFlags(flags) {
		msg.flags[flag] = true
	}
	msg.size = uint32(len(msg.Raw()))
	return msg
}

// ID is the UID of the message in its folder
func (m *Message) ID() uint64 {
	return m.id
}

// SeqNum is the message number computed during the last enumeration of the folder
func (m *Message) SeqNum() uint32 {
	return m.seqNum.Load()
}

func (m *Message) Folder() *Folder {
	return m.folder
}

func (m *Message) Expunged() bool {
	return m.expunged.Load()
}

// Flags returns the current flags, sorted
func (m *Message) Flags() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flags := make([]string, 0, len(m.flags))
	for flag := range m.flags {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	return flags
}

func (m *Message) HasFlag(flag string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.flags[imap.CanonicalFlag(flag)]
}

func (m *Message) hasAll(flags []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, flag := range flags {
		if !m.flags[flag] {
			return false
		}
	}
	return true
}

func (m *Message) hasAny(flags []string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, flag := range flags {
		if m.flags[flag] {
			return true
		}
	}
	return false
}

func (m *Message) changeFlags(flags []string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, flag := range flags {
		if on {
			m.flags[flag] = true
		} else {
			delete(m.flags, flag)
		}
	}
}

// SetFlags adds (on=true) or removes the flags, then notifies the folder listeners
func (m *Message) SetFlags(flags []string, on bool) error {
	return m.folder.setFlags(m, lib.CanonicalFlags(flags), on)
}

// Header returns a copy of the message header
func (m *Message) Header() textproto.Header {
	return m.header.Copy()
}

func (m *Message) GetHeader(key string) string {
	return m.header.Get(key)
}

func (m *Message) Subject() string {
	subject, err := m.mailHeader().Subject()
	if err != nil {
		return m.header.Get("Subject")
	}
	return subject
}

// Date is the date from the message header
func (m *Message) Date() (time.Time, error) {
	return m.mailHeader().Date()
}

func (m *Message) From() ([]*mail.Address, error) {
	return m.mailHeader().AddressList("From")
}

func (m *Message) InternalDate() time.Time {
	return m.internalDate
}

func (m *Message) Size() uint32 {
	return m.size
}

// Hash is the SHA-256 of the message as it was appended
func (m *Message) Hash() []byte {
	return m.hash
}

func (m *Message) Body() io.Reader {
	return bytes.NewReader(m.body)
}

// Raw returns the full message: header then body
func (m *Message) Raw() []byte {
	buffer := &bytes.Buffer{}
	_ = textproto.WriteHeader(buffer, m.header)
	buffer.Write(m.body)
	return buffer.Bytes()
}

// Entity returns the message as a go-message entity
func (m *Message) Entity() (*message.Entity, error) {
	return message.New(message.Header{Header: m.header.Copy()}, bytes.NewReader(m.body))
}

// Envelope parses the MIME structure of the message
func (m *Message) Envelope() (*enmime.Envelope, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(m.Raw()))
	if err != nil {
		return nil, fmt.Errorf("cannot parse message %d: %w", m.id, err)
	}
	return env, nil
}

func (m *Message) String() string {
	return fmt.Sprintf("message %d (seq %d) in %q", m.id, m.SeqNum(), m.folder.FullPath())
}

func (m *Message) mailHeader() *mail.Header {
	return &mail.Header{Header: message.Header{Header: m.header}}
}

// Content mutations are rejected: a delivered message cannot be edited.

func (m *Message) SetHeader(key, value string) error   { return lib.ErrReadOnly }
func (m *Message) AddHeader(key, value string) error   { return lib.ErrReadOnly }
func (m *Message) RemoveHeader(key string) error       { return lib.ErrReadOnly }
func (m *Message) SetSubject(subject string) error     { return lib.ErrReadOnly }
func (m *Message) SetBody(body io.Reader) error        { return lib.ErrReadOnly }
func (m *Message) SetFrom(from ...*mail.Address) error { return lib.ErrReadOnly }
func (m *Message) SetRecipients(kind string, to ...*mail.Address) error {
	return lib.ErrReadOnly
}
func (m *Message) SaveChanges() error { return lib.ErrReadOnly }
