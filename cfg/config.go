// Package cfg loads the YAML configuration: the accounts and the fixtures of the simulated mailboxes.
package cfg

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"gopkg.in/yaml.v3"
)

type AccountType string

const (
	MOCK    AccountType = "mock"
	IMAP    AccountType = "imap"
	MAILDIR AccountType = "maildir"
	LOCAL   AccountType = "local"
)

type Config struct {
	Accounts map[string]Account `yaml:"accounts"`
}

type Account struct {
	Type       AccountType `yaml:"type"`
	ServerURL  string      `yaml:"serverURL"`
	Username   string      `yaml:"username"`
	Password   string      `yaml:"password"`
	SkipVerify bool        `yaml:"skipTLSVerification"`
	Root       string      `yaml:"root"`
	File       string      `yaml:"file"`
	// mock accounts only
	Address       string   `yaml:"address"`
	SimulateError bool     `yaml:"simulateError"`
	Folders       []Folder `yaml:"folders"`
}

type Folder struct {
	Path          string    `yaml:"path"`
	Subscribed    bool      `yaml:"subscribed"`
	SimulateError bool      `yaml:"simulateError"`
	Generate      int       `yaml:"generate"`
	Messages      []Message `yaml:"messages"`
}

type Message struct {
	From    string    `yaml:"from"`
	To      string    `yaml:"to"`
	Subject string    `yaml:"subject"`
	Body    string    `yaml:"body"`
	Flags   []string  `yaml:"flags"`
	Date    time.Time `yaml:"date"`
}

func newConfig() *Config {
	return &Config{
		Accounts: make(map[string]Account),
	}
}

// LoadFromFile loads the configuration from the file
func LoadFromFile(fileName string) (*Config, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// Load the configuration from a reader
func Load(reader io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	config := newConfig()
	err := decoder.Decode(config)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if config.Accounts == nil {
		config.Accounts = make(map[string]Account)
	}
	err = validateConfiguration(config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfiguration(config *Config) error {
	for name, account := range config.Accounts {
		switch account.Type {
		case MOCK:
			if account.AccountAddress(name) == "" {
				return fmt.Errorf("%w: account %q has no address", lib.ErrInvalidArgument, name)
			}
			for _, folder := range account.Folders {
				if folder.Path == "" {
					return fmt.Errorf("%w: account %q has a folder without path", lib.ErrInvalidArgument, name)
				}
				if folder.Generate < 0 {
					return fmt.Errorf("%w: folder %q of account %q cannot generate %d messages", lib.ErrInvalidArgument, folder.Path, name, folder.Generate)
				}
			}
		case IMAP:
			if account.ServerURL == "" {
				return fmt.Errorf("%w: account %q has no serverURL", lib.ErrInvalidArgument, name)
			}
		case MAILDIR:
			if account.Root == "" {
				return fmt.Errorf("%w: account %q has no root", lib.ErrInvalidArgument, name)
			}
		case LOCAL:
			if account.File == "" {
				return fmt.Errorf("%w: account %q has no file", lib.ErrInvalidArgument, name)
			}
		default:
			return fmt.Errorf("%w: account %q has an unknown type %q", lib.ErrInvalidArgument, name, account.Type)
		}
	}
	return nil
}

// AccountAddress returns the mailbox identity of the account: its address, or its name by default
func (a Account) AccountAddress(name string) string {
	if a.Address != "" {
		return a.Address
	}
	return name
}
