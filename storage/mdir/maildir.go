// Package mdir is a storage backend over a Maildir++ tree: one directory per mailbox.
package mdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/emersion/go-maildir"
)

const Delimiter = "."

type Maildir struct {
	root     string
	log      lib.Logger
	selected string
}

func New(root string) (*Maildir, error) {
	return NewWithLogger(root, nil)
}

func NewWithLogger(root string, logger lib.Logger) (*Maildir, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.New("maildir is not supported on Windows")
	}
	err := os.MkdirAll(root, 0700)
	if err != nil {
		return nil, err
	}

	return &Maildir{
		root: root,
		log:  lib.OrNoLog(logger),
	}, nil
}

func (m *Maildir) DebugLogger(logger lib.Logger) {
	m.log = lib.OrNoLog(logger)
}

func (m *Maildir) Close() error {
	return nil
}

func (m *Maildir) Root() string {
	return m.root
}

func (m *Maildir) Delimiter() string {
	return Delimiter
}

func (m *Maildir) SupportMessageID() bool {
	return true
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (m *Maildir) CreateMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	dirName := filepath.Join(m.root, name)
	if _, err := os.Stat(dirName); err == nil || errors.Is(err, fs.ErrExist) {
		// mailbox already exists
		return nil
	}
	mbox := maildir.Dir(dirName)
	err := mbox.Init()
	if err != nil {
		return err
	}
	// the UID validity is the only thing maildir cannot keep
	return m.setMailboxStatus(name, mailbox.Status{
		Name:        name,
		UidValidity: lib.NewUID(),
	})
}

func (m *Maildir) ListMailbox() ([]mailbox.Info, error) {
	list := make([]mailbox.Info, 0)
	files, err := os.ReadDir(m.root)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if !file.IsDir() {
			continue
		}
		list = append(list, mailbox.Info{
			Delimiter: Delimiter,
			Name:      file.Name(),
		})
	}
	return list, nil
}

func (m *Maildir) DeleteMailbox(info mailbox.Info) error {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	_ = os.Remove(m.statusFile(name))
	return os.RemoveAll(filepath.Join(m.root, name))
}

func (m *Maildir) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, m.Delimiter())
	if !m.mailboxExists(name) {
		return nil, lib.ErrMailboxNotFound
	}
	status, err := m.getMailboxStatus(name)
	if err != nil {
		return nil, err
	}
	msgs, err := maildir.Dir(filepath.Join(m.root, name)).Messages()
	if err != nil {
		return nil, err
	}
	status.Name = name
	status.Messages = uint32(len(msgs))
	status.Unseen = 0
	status.Deleted = 0
	for _, msg := range msgs {
		flags := msg.Flags()
		if !hasFlag(flags, maildir.FlagSeen) {
			status.Unseen++
		}
		if hasFlag(flags, maildir.FlagTrashed) {
			status.Deleted++
		}
	}
	m.selected = name
	return status, nil
}

func (m *Maildir) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	if !m.mailboxExists(name) {
		return mailbox.EmptyMessageID, lib.ErrMailboxNotFound
	}
	mbox := maildir.Dir(filepath.Join(m.root, name))
	msg, copied, err := m.createFromStream(mbox, props.Flags, body)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	filename := msg.Filename()
	if props.Size > 0 && copied != int64(props.Size) {
		// delete the message
		_ = os.Remove(filename)
		return mailbox.EmptyMessageID, fmt.Errorf("%w: advertised as %d bytes but read %d bytes from buffer", lib.ErrSizeMismatch, props.Size, copied)
	}
	m.log.Printf("Message saved: mailbox=%q key=%q size=%d flags=%v date=%q", name, msg.Key(), copied, props.Flags, props.InternalDate)

	if !props.InternalDate.IsZero() {
		_ = os.Chtimes(filename, time.Now(), props.InternalDate)
	}
	return mailbox.NewMessageIDFromString(msg.Key()), nil
}

func (m *Maildir) createFromStream(mbox maildir.Dir, flags []string, body io.Reader) (*maildir.Message, int64, error) {
	msg, writer, err := mbox.Create(toFlags(flags))
	if err != nil {
		return msg, 0, err
	}
	copied, err := io.Copy(writer, body)
	if err != nil {
		_ = writer.Close()
		return msg, copied, err
	}
	return msg, copied, writer.Close()
}

// FetchMessages sends the messages with the file modification time as internal date
func (m *Maildir) FetchMessages(ctx context.Context, messages chan *mailbox.Message) error {
	defer close(messages)

	if m.selected == "" {
		return lib.ErrNotSelected
	}

	mbox := maildir.Dir(filepath.Join(m.root, m.selected))
	msgs, err := mbox.Messages()
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		filename := msg.Filename()
		info, err := os.Stat(filename)
		if err != nil {
			return fmt.Errorf("cannot stat %q: %w", filename, err)
		}
		file, err := msg.Open()
		if err != nil {
			return fmt.Errorf("cannot open key %q: %w", msg.Key(), err)
		}
		messages <- &mailbox.Message{
			MessageProperties: mailbox.MessageProperties{
				Flags:        flagsToStrings(msg.Flags()),
				InternalDate: info.ModTime(),
				Size:         uint32(info.Size()),
			},
			Uid:  mailbox.NewMessageIDFromString(msg.Key()),
			Body: file,
		}
	}
	return nil
}

// LatestDate returns the internal date of the latest message
func (m *Maildir) LatestDate(ctx context.Context) (time.Time, error) {
	latest := time.Time{}

	if m.selected == "" {
		return latest, lib.ErrNotSelected
	}

	mbox := maildir.Dir(filepath.Join(m.root, m.selected))
	msgs, err := mbox.Messages()
	if err != nil {
		return latest, err
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return latest, ctx.Err()
		}
		filename := msg.Filename()
		info, err := os.Stat(filename)
		if err != nil {
			return latest, fmt.Errorf("cannot stat %q: %w", filename, err)
		}
		if latest.Before(info.ModTime()) {
			latest = info.ModTime()
		}
	}

	return latest, nil
}

func (m *Maildir) UnselectMailbox() error {
	m.selected = ""
	return nil
}

func (m *Maildir) mailboxExists(name string) bool {
	stat, err := os.Stat(filepath.Join(m.root, name))
	if err != nil {
		return false
	}
	return stat.IsDir()
}

func (m *Maildir) statusFile(name string) string {
	return filepath.Join(m.root, name+".json")
}

func (m *Maildir) setMailboxStatus(name string, status mailbox.Status) error {
	file, err := os.Create(m.statusFile(name))
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	return encoder.Encode(status)
}

func (m *Maildir) getMailboxStatus(name string) (*mailbox.Status, error) {
	file, err := os.Open(m.statusFile(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStatusNotFound, err)
	}
	defer file.Close()

	status := &mailbox.Status{}
	decoder := json.NewDecoder(file)
	err = decoder.Decode(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrStatusNotFound, err)
	}

	return status, nil
}
