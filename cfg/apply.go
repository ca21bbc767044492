package cfg

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

const (
	generatedMinSize = 1000
	generatedMaxSize = 10000
)

// Apply seeds the mailboxes of the mock accounts
func Apply(registry *mock.Registry, config *Config) error {
	for name, account := range config.Accounts {
		if account.Type != MOCK {
			continue
		}
		if err := applyAccount(registry, account.AccountAddress(name), account); err != nil {
			return fmt.Errorf("account %q: %w", name, err)
		}
	}
	return nil
}

func applyAccount(registry *mock.Registry, address string, account Account) error {
	mbox := registry.Mailbox(address)
	for _, fixture := range account.Folders {
		folder, err := mbox.Folder(fixture.Path)
		if err != nil {
			return err
		}
		if !folder.Exists() {
			if err := folder.Create(); err != nil {
				return err
			}
		}
		folder.Subscribe(fixture.Subscribed)

		for _, message := range fixture.Messages {
			raw, err := message.build(address)
			if err != nil {
				return err
			}
			if _, err := folder.Append(mailbox.MessageProperties{
				Flags:        message.Flags,
				InternalDate: message.Date,
			}, bytes.NewReader(raw)); err != nil {
				return err
			}
		}
		date := time.Now().Add(-time.Duration(fixture.Generate) * time.Hour)
		for i := 0; i < fixture.Generate; i++ {
			date = lib.GenerateDateFrom(date)
			raw := lib.GenerateEmail("fixture@example.com", address, lib.NewUID(), generatedMinSize, generatedMaxSize)
			if _, err := folder.Append(mailbox.MessageProperties{
				Flags:        lib.GenerateFlags(3),
				InternalDate: date,
			}, bytes.NewReader(raw)); err != nil {
				return err
			}
		}
		// set last so the fixtures can still be appended
		folder.SetSimulateError(fixture.SimulateError)
	}
	mbox.Inbox().SetSimulateError(account.SimulateError)
	return nil
}

// build formats the fixture as an RFC 5322 message
func (m Message) build(address string) ([]byte, error) {
	header := mail.Header{}
	from := m.From
	if from == "" {
		from = "fixture@example.com"
	}
	to := m.To
	if to == "" {
		to = address
	}
	fromAddresses, err := parseAddressList(from)
	if err != nil {
		return nil, err
	}
	toAddresses, err := parseAddressList(to)
	if err != nil {
		return nil, err
	}
	header.SetAddressList("From", fromAddresses)
	header.SetAddressList("To", toAddresses)
	header.SetSubject(m.Subject)
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	header.SetDate(date)
	header.Set("Content-Type", "text/plain; charset=utf-8")

	buffer := &bytes.Buffer{}
	if err := textproto.WriteHeader(buffer, header.Header.Header); err != nil {
		return nil, err
	}
	buffer.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return buffer.Bytes(), nil
}

func parseAddressList(list string) ([]*mail.Address, error) {
	addresses, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", lib.ErrInvalidArgument, list, err)
	}
	return addresses, nil
}
