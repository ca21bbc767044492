package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/creativeprojects/mailmock/term"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "mailmock.yaml"

var rootCmd = &cobra.Command{
	Use:   "mailmock",
	Short: "Simulated mail store: seed mock mailboxes, watch them, copy them to real backends",
	Long:  "\nSimulated mail store: seed mock mailboxes, watch them, copy them to real backends",
}

func init() {
	cobra.OnInitialize(initLog, initConfig)
	flag := rootCmd.PersistentFlags()
	flag.StringVarP(&global.configFile, "config", "c", defaultConfigFile, "configuration file")
	flag.BoolVarP(&global.quiet, "quiet", "q", false, "only display warnings and errors")
	flag.BoolVarP(&global.verbose, "verbose", "v", false, "display debugging information")
}

func initConfig() {
	var err error
	config, err = cfg.LoadFromFile(global.configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
			// no configuration: only the mock accounts created on the fly
			term.Debugf("no configuration file %q", global.configFile)
			config, _ = cfg.Load(strings.NewReader(""))
			return
		}
		term.Errorf("cannot open or read configuration file: %s", err)
		os.Exit(1)
	}
	if global.verbose {
		registry = mock.NewRegistryWithLogger(log.Default())
	}
	err = cfg.Apply(registry, config)
	if err != nil {
		term.Errorf("cannot load the mock accounts: %s", err)
		os.Exit(1)
	}
}

func initLog() {
	switch {
	case global.verbose:
		term.SetLevel(term.LevelDebug)
	case global.quiet:
		term.SetLevel(term.LevelWarn)
	}
}

func Execute(version, commit, date, builtBy string) {
	setApp(version, commit, date, builtBy)
	if err := rootCmd.Execute(); err != nil {
		term.Error(err)
		os.Exit(1)
	}
}
