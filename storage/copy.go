package storage

import (
	"context"
	"fmt"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
)

// CopyMessages copies all the messages of the mailbox from the source to the destination,
// creating the mailbox at destination if needed. It returns the number of messages saved.
// A message that cannot be saved is logged and skipped.
func CopyMessages(ctx context.Context, backendSource, backendDest Backend, mbox mailbox.Info, pbar Progresser, logger lib.Logger) (int, error) {
	log := lib.OrNoLog(logger)
	err := backendDest.CreateMailbox(mbox)
	if err != nil {
		return 0, fmt.Errorf("cannot create mailbox at destination: %w", err)
	}
	_, err = backendSource.SelectMailbox(mbox)
	if err != nil {
		return 0, fmt.Errorf("cannot select mailbox at source: %w", err)
	}

	receiver := make(chan *mailbox.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- backendSource.FetchMessages(ctx, receiver)
	}()

	copied := 0
	for msg := range receiver {
		if pbar != nil {
			pbar.Increment()
		}
		props := mailbox.MessageProperties{
			Flags:        msg.Flags,
			InternalDate: msg.InternalDate,
			Size:         msg.Size,
			Hash:         msg.Hash,
		}
		_, err = backendDest.PutMessage(mbox, props, msg.Body)
		_ = msg.Body.Close()
		if err != nil {
			// log the error but keep going
			log.Printf("error saving message %s: %s", msg.Uid, err)
			continue
		}
		copied++
	}
	// wait until all the messages arrived
	err = <-done
	_ = backendSource.UnselectMailbox()
	if err != nil {
		return copied, fmt.Errorf("error loading messages: %w", err)
	}
	return copied, nil
}
