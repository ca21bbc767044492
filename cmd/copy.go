package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/storage"
	"github.com/creativeprojects/mailmock/term"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy <source> <destination>",
	Short: "Copy an account mailboxes to another one",
	RunE:  runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account names (source and destination)")
	} else if len(args) < 2 {
		return errors.New("missing destination account name")
	}

	backendSource, err := openBackend(args[0])
	if err != nil {
		return err
	}
	defer backendSource.Close()

	backendDest, err := openBackend(args[1])
	if err != nil {
		return err
	}
	defer backendDest.Close()

	mailboxes, err := backendSource.ListMailbox()
	if err != nil {
		return fmt.Errorf("cannot list source account mailbox: %w", err)
	}

	var logger lib.Logger = termLogger{}
	if global.verbose {
		logger = log.Default()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	total := 0
	for _, mbox := range mailboxes {
		status, err := backendSource.SelectMailbox(mbox)
		if err != nil {
			continue
		}
		_ = backendSource.UnselectMailbox()
		if status.Messages == 0 {
			// it's empty so don't bother
			continue
		}
		term.Infof("copying mailbox %s", mbox.Name)
		progress := startProgress(mbox.Name, status.Messages)
		copied, err := storage.CopyMessages(ctx, backendSource, backendDest, mbox, progress, logger)
		progress.Stop()
		total += copied
		if err != nil {
			term.Error(err.Error())
		}
	}
	term.Infof("%d messages copied", total)
	return nil
}

// termLogger sends the errors of the storage layer to the terminal
type termLogger struct{}

func (termLogger) Print(a ...any)                 { term.Error(a...) }
func (termLogger) Println(a ...any)               { term.Error(a...) }
func (termLogger) Printf(format string, a ...any) { term.Errorf(format, a...) }
