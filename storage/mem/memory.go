// Package mem is a storage backend over a mailbox of the simulated store.
package mem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
)

const Delimiter = mock.Separator

type Backend struct {
	mbox     *mock.Mailbox
	log      lib.Logger
	selected *mock.Folder
}

func New(mbox *mock.Mailbox) *Backend {
	return NewWithLogger(mbox, nil)
}

func NewWithLogger(mbox *mock.Mailbox, logger lib.Logger) *Backend {
	return &Backend{
		mbox: mbox,
		log:  lib.OrNoLog(logger),
	}
}

func (m *Backend) DebugLogger(logger lib.Logger) {
	m.log = lib.OrNoLog(logger)
}

// Close leaves the mailbox untouched: it belongs to the registry
func (m *Backend) Close() error {
	m.selected = nil
	return nil
}

func (m *Backend) Delimiter() string {
	return Delimiter
}

func (m *Backend) SupportMessageID() bool {
	return true
}

func (m *Backend) folder(info mailbox.Info) (*mock.Folder, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	return m.mbox.Folder(name)
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (m *Backend) CreateMailbox(info mailbox.Info) error {
	folder, err := m.folder(info)
	if err != nil {
		return err
	}
	if folder.Exists() {
		return nil
	}
	return folder.Create()
}

func (m *Backend) ListMailbox() ([]mailbox.Info, error) {
	list := make([]mailbox.Info, 0)
	err := m.mbox.Walk(func(folder *mock.Folder, depth int) error {
		list = append(list, mailbox.Info{
			Delimiter: Delimiter,
			Name:      folder.FullPath(),
		})
		return nil
	})
	return list, err
}

func (m *Backend) DeleteMailbox(info mailbox.Info) error {
	folder, err := m.folder(info)
	if err != nil {
		return err
	}
	if !folder.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, folder)
	}
	return folder.DeleteFolder(false)
}

func (m *Backend) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	folder, err := m.folder(info)
	if err != nil {
		return nil, err
	}
	status, err := folder.Status()
	if err != nil {
		if errors.Is(err, lib.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, folder)
		}
		return nil, err
	}
	m.selected = folder
	return status, nil
}

func (m *Backend) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	folder, err := m.folder(info)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	if !folder.Exists() {
		return mailbox.EmptyMessageID, fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, folder)
	}
	msg, err := folder.Append(props, body)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	m.log.Printf("Message saved: mailbox=%q uid=%d size=%d flags=%v", folder.FullPath(), msg.ID(), msg.Size(), props.Flags)
	return mailbox.NewMessageIDFromUint(msg.ID()), nil
}

// FetchMessages sends the messages in sequence order. The \Recent flag is not exported: it belongs to the session.
func (m *Backend) FetchMessages(ctx context.Context, messages chan *mailbox.Message) error {
	defer close(messages)

	if m.selected == nil {
		return lib.ErrNotSelected
	}

	list, err := m.selected.Messages()
	if err != nil {
		return err
	}
	for _, msg := range list {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		messages <- &mailbox.Message{
			MessageProperties: mailbox.MessageProperties{
				Flags:        lib.StripRecentFlag(msg.Flags()),
				InternalDate: msg.InternalDate(),
				Size:         msg.Size(),
				Hash:         msg.Hash(),
			},
			Uid:  mailbox.NewMessageIDFromUint(msg.ID()),
			Body: io.NopCloser(bytes.NewReader(msg.Raw())),
		}
	}
	return nil
}

func (m *Backend) UnselectMailbox() error {
	m.selected = nil
	return nil
}

// GenerateFakeEmails creates the mailbox if needed and fills it with count random messages
func (m *Backend) GenerateFakeEmails(info mailbox.Info, count uint32, minSize, maxSize int) error {
	err := m.CreateMailbox(info)
	if err != nil {
		return err
	}
	folder, err := m.folder(info)
	if err != nil {
		return err
	}

	var i uint32
	for i = 1; i <= count; i++ {
		msg := lib.GenerateEmail("user1@example.com", m.mbox.Account(), i, minSize, maxSize)
		_, err = folder.Append(mailbox.MessageProperties{
			Flags:        lib.GenerateFlags(5),
			InternalDate: lib.GenerateDateFrom(time.Date(2010, 1, 1, 12, 0, 0, 0, time.Local)),
		}, bytes.NewReader(msg))
		if err != nil {
			return err
		}
	}
	return nil
}
