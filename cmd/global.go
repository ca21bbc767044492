package cmd

import (
	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/mock"
)

type GlobalFlags struct {
	configFile string
	quiet      bool
	verbose    bool
}

var (
	global   GlobalFlags
	config   *cfg.Config
	registry = mock.NewRegistry()
)
