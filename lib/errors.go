package lib

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the store wraps exactly one of them.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnsupported      = errors.New("not supported")
	ErrSimulatedFailure = errors.New("simulated failure")
)

var (
	ErrMailboxNotFound = fmt.Errorf("mailbox %w", ErrNotFound)
	ErrFolderNotFound  = fmt.Errorf("folder %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)
	ErrInfoNotFound    = fmt.Errorf("mailbox info %w", ErrNotFound)
	ErrStatusNotFound  = fmt.Errorf("mailbox status %w", ErrNotFound)

	ErrNotSelected      = fmt.Errorf("%w: mailbox not selected", ErrInvalidState)
	ErrAlreadyExists    = fmt.Errorf("%w: folder already exists", ErrInvalidState)
	ErrReadOnly         = fmt.Errorf("%w: mock messages are read-only", ErrInvalidState)
	ErrFolderOpen       = fmt.Errorf("%w: folder is open", ErrInvalidState)
	ErrFolderClosed     = fmt.Errorf("%w: folder is not open", ErrInvalidState)
	ErrReadOnlyFolder   = fmt.Errorf("%w: folder is opened read-only", ErrInvalidState)
	ErrAlreadyConnected = fmt.Errorf("%w: already connected", ErrInvalidState)
	ErrNotConnected     = fmt.Errorf("%w: not connected", ErrInvalidState)

	ErrInvalidName   = fmt.Errorf("%w: invalid folder name", ErrInvalidArgument)
	ErrOutOfRange    = fmt.Errorf("%w: message number out of range", ErrInvalidArgument)
	ErrCrossMailbox  = fmt.Errorf("%w: target belongs to a different store", ErrInvalidArgument)
	ErrRootFolder    = fmt.Errorf("%w: operation not allowed on the root folder", ErrInvalidArgument)
	ErrSizeMismatch  = fmt.Errorf("%w: message size mismatch", ErrInvalidArgument)
	ErrNoRecipients  = fmt.Errorf("%w: no recipient", ErrInvalidArgument)
	ErrInvalidHeader = fmt.Errorf("%w: cannot parse message header", ErrInvalidArgument)

	ErrConnect  = fmt.Errorf("%w: cannot connect to mailbox", ErrSimulatedFailure)
	ErrDelivery = fmt.Errorf("%w: message not delivered", ErrSimulatedFailure)
)
