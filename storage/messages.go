package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/creativeprojects/mailmock/mailbox"
)

// LoadMessageProperties fetches the properties of all the messages of the mailbox.
// The hash is computed from the body when the backend doesn't provide one.
func LoadMessageProperties(ctx context.Context, backend Backend, mbox mailbox.Info, pbar Progresser) ([]mailbox.Message, error) {
	messages := make([]mailbox.Message, 0)

	_, err := backend.SelectMailbox(mbox)
	if err != nil {
		return messages, err
	}

	receiver := make(chan *mailbox.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- backend.FetchMessages(ctx, receiver)
	}()

	var readErr error
	for msg := range receiver {
		if pbar != nil {
			pbar.Increment()
		}
		if len(msg.Hash) == 0 && readErr == nil {
			// calculate the hash now
			hasher := sha256.New()
			_, err := io.Copy(hasher, msg.Body)
			if err != nil {
				// keep draining the channel so the backend can finish
				readErr = fmt.Errorf("error reading message %s: %w", msg.Uid, err)
			}
			msg.Hash = hasher.Sum(nil)
		}
		_ = msg.Body.Close()
		msg.Body = nil
		messages = append(messages, *msg)
	}
	// wait until all the messages arrived
	err = <-done
	_ = backend.UnselectMailbox()
	if readErr != nil {
		return messages, readErr
	}
	if err != nil {
		return messages, fmt.Errorf("error loading messages: %w", err)
	}
	return messages, nil
}

// Duplicates groups the messages sharing the same hash, keeping only the groups with more than one message
func Duplicates(messages []mailbox.Message) [][]mailbox.Message {
	groups := make(map[string][]mailbox.Message, len(messages))
	order := make([]string, 0)
	for _, msg := range messages {
		key := string(msg.Hash)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], msg)
	}
	duplicates := make([][]mailbox.Message, 0)
	for _, key := range order {
		if len(groups[key]) > 1 {
			duplicates = append(duplicates, groups[key])
		}
	}
	return duplicates
}
