package cmd

import (
	"fmt"
	"log"

	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/storage"
)

// account returns the configured account, or a mock account named after the address
func account(name string) cfg.Account {
	if account, ok := config.Accounts[name]; ok {
		return account
	}
	return cfg.Account{Type: cfg.MOCK, Address: name}
}

func openBackend(name string) (storage.Backend, error) {
	var logger lib.Logger
	if global.verbose {
		logger = log.Default()
	}
	backend, err := storage.NewBackend(registry, name, account(name), logger)
	if err != nil {
		return nil, fmt.Errorf("cannot open backend of account %q: %w", name, err)
	}
	return backend, nil
}

// mockAddress returns the address of a mock account
func mockAddress(name string) (string, error) {
	account := account(name)
	if account.Type != cfg.MOCK {
		return "", fmt.Errorf("account %q is not a mock account", name)
	}
	return account.AccountAddress(name), nil
}
