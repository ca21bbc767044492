package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/creativeprojects/mailmock/session"
	"github.com/creativeprojects/mailmock/term"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type idleFlags struct {
	count    int
	interval time.Duration
	timeout  time.Duration
	journal  string
}

var (
	idleCmd = &cobra.Command{
		Use:   "idle <account> [folder]",
		Short: "Wait for changes on a folder while messages are delivered to it",
		RunE:  runIdle,
	}
	idleOptions idleFlags
)

func init() {
	rootCmd.AddCommand(idleCmd)
	flags := idleCmd.Flags()
	flags.IntVar(&idleOptions.count, "count", 3, "number of messages to deliver while waiting")
	flags.DurationVar(&idleOptions.interval, "interval", time.Second, "delay between two deliveries")
	flags.DurationVar(&idleOptions.timeout, "timeout", 10*time.Second, "stop waiting after this delay")
	flags.StringVar(&idleOptions.journal, "journal", "", "save the events received to this JSON file")
}

func runIdle(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	}
	address, err := mockAddress(args[0])
	if err != nil {
		return err
	}
	path := mock.InboxName
	if len(args) > 1 {
		path = args[1]
	}

	var logger lib.Logger
	if global.verbose {
		logger = log.Default()
	}
	store := session.NewStoreWithLogger(registry, logger)
	if err := store.Connect(address); err != nil {
		return err
	}
	defer store.Close()

	folder, err := store.Folder(path)
	if err != nil {
		return err
	}
	if err := folder.Open(session.ReadOnly); err != nil {
		return err
	}
	defer folder.Close(false)

	journal := mock.NewJournal()
	folder.AddListener(journal)

	ctx, cancel := context.WithTimeout(context.Background(), idleOptions.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- folder.Idle(ctx, false)
	}()

	deliveries := newTransport()
	for i := 0; i < idleOptions.count; i++ {
		select {
		case <-ctx.Done():
		case <-time.After(idleOptions.interval):
			msg := lib.GenerateEmail(address, address, lib.NewUID(), 1000, 5000)
			if _, err := deliveries.Send(ctx, bytes.NewReader(msg), address); err != nil {
				term.Error(err)
			}
		}
	}
	// give the waiter a chance to pick up the last delivery
	time.Sleep(idleOptions.interval)
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(journalTable(journal.Entries())).Render(); err != nil {
		return err
	}
	if idleOptions.journal != "" {
		return journal.SaveToFile(idleOptions.journal)
	}
	return nil
}

func journalTable(entries []mock.JournalEntry) pterm.TableData {
	data := pterm.TableData{
		{"Date", "Folder", "Event", "UID", "Detail"},
	}
	for _, entry := range entries {
		uid := ""
		if entry.UID > 0 {
			uid = fmt.Sprintf("%d", entry.UID)
		}
		data = append(data, []string{
			entry.Date.Format(time.StampMilli),
			entry.Folder,
			entry.Event,
			uid,
			entry.Detail,
		})
	}
	return data
}
