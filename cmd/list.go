package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/creativeprojects/mailmock/storage"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <account>",
	Short: "Display list of mailboxes",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("cannot list account mailbox: %w", err)
	}
	table := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Mailbox", "Messages", "Unseen", "Recent", "Size", "Flags"},
	})
	for _, mailbox := range mailboxes {
		var messages, unseen, recent, size, flags string
		status, err := backend.SelectMailbox(mailbox)
		if err == nil {
			messages = strconv.FormatUint(uint64(status.Messages), 10)
			unseen = strconv.FormatUint(uint64(status.Unseen), 10)
			recent = strconv.FormatUint(uint64(status.Recent), 10)
			flags = displayFlags(status.Flags)
			if status.Messages > 0 {
				props, err := storage.LoadMessageProperties(context.Background(), backend, mailbox, nil)
				if err == nil {
					size = humanize.IBytes(totalSize(props))
				}
			}
		}
		_ = backend.UnselectMailbox()
		table.Data = append(table.Data, []string{mailbox.Name, messages, unseen, recent, size, flags})
	}
	return table.Render()
}

func displayFlags(source []string) string {
	flags := make([]string, len(source))
	for i, flag := range source {
		flags[i] = strings.TrimPrefix(flag, "\\")
	}
	return strings.Join(flags, ", ")
}
