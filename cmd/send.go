package cmd

import (
	"bytes"
	"context"
	"errors"
	"log"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/term"
	"github.com/creativeprojects/mailmock/transport"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	minSize int
	maxSize int
	rate    float64
}

var (
	sendCmd = &cobra.Command{
		Use:   "send <account> <recipient>...",
		Short: "Deliver a generated message from a mock account to the inbox of the recipients",
		RunE:  runSend,
	}
	sendOptions sendFlags
)

func init() {
	rootCmd.AddCommand(sendCmd)
	flags := sendCmd.Flags()
	flags.IntVar(&sendOptions.minSize, "min-size", 1000, "minimum size of the generated message")
	flags.IntVar(&sendOptions.maxSize, "max-size", 10000, "maximum size of the generated message")
	flags.Float64Var(&sendOptions.rate, "rate", 0, "delivery bandwidth in bytes per second (0 = unlimited)")
}

func newTransport() *transport.Transport {
	opts := []transport.Option{}
	if global.verbose {
		opts = append(opts, transport.WithLogger(log.Default()))
	}
	if sendOptions.rate > 0 {
		opts = append(opts, transport.WithRateLimit(sendOptions.rate, 1024))
	}
	deliveries := transport.New(registry, opts...)
	deliveries.AddListener(func(event transport.Event) {
		if event.Type == transport.Delivered {
			term.Debugf("%s to %s", event.Type, event.Recipient)
			return
		}
		term.Warnf("%s to %s", event.Type, event.Recipient)
	})
	return deliveries
}

func runSend(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return errors.New("missing account name")
	} else if len(args) < 2 {
		return errors.New("missing recipient")
	}
	from, err := mockAddress(args[0])
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(args)-1)
	for _, name := range args[1:] {
		address, err := mockAddress(name)
		if err != nil {
			return err
		}
		recipients = append(recipients, address)
	}

	msg := lib.GenerateEmail(from, recipients[0], lib.NewUID(), sendOptions.minSize, sendOptions.maxSize)
	delivered, err := newTransport().Send(context.Background(), bytes.NewReader(msg), recipients...)
	term.Infof("message delivered to %d recipient(s)", len(delivered))
	return err
}
