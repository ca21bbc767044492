package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/storage"
	"github.com/creativeprojects/mailmock/term"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates <account>",
	Short: "Find duplicate emails across mailboxes (in the same account)",
	RunE:  runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	backend, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backend.Close()

	mailboxes, err := backend.ListMailbox()
	if err != nil {
		return fmt.Errorf("cannot list source account mailbox: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all := make([]mailbox.Message, 0)
	for _, mbox := range mailboxes {
		status, err := backend.SelectMailbox(mbox)
		if err != nil {
			continue
		}
		_ = backend.UnselectMailbox()
		if status.Messages == 0 {
			// it's empty so don't bother
			continue
		}
		term.Infof("reading mailbox %s", mbox.Name)
		progress := startProgress(mbox.Name, status.Messages)
		entries, err := storage.LoadMessageProperties(ctx, backend, mbox, progress)
		progress.Stop()
		if err != nil {
			term.Error(err.Error())
		}
		all = append(all, entries...)
	}

	groups := storage.Duplicates(all)
	duplicates := 0
	var wasted uint64
	for _, group := range groups {
		duplicates += len(group) - 1
		wasted += totalSize(group[1:])
	}

	fmt.Printf("total of %d unique messages\n", len(all)-duplicates)
	switch duplicates {
	case 0:
		fmt.Print("no duplicate message\n")
	case 1:
		fmt.Printf("found 1 duplicate message (%s)\n", humanize.IBytes(wasted))
	default:
		fmt.Printf("found %d duplicate messages (%s)\n", duplicates, humanize.IBytes(wasted))
	}
	return nil
}

func totalSize(messages []mailbox.Message) uint64 {
	var total uint64
	for _, msg := range messages {
		total += uint64(msg.Size)
	}
	return total
}
