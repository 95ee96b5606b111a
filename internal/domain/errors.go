package domain

import "errors"

var (
	// ErrNoOwnership is returned when a token has no transfer in the ledger
	ErrNoOwnership = errors.New("no ownership")

	// ErrLockTimeout is returned when a lock could not be acquired within the timeout
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrLockNotHeld is returned when releasing a lock that was already lost to expiry or another holder
	ErrLockNotHeld = errors.New("lock not held")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate record")

	// ErrBlockNotFound is returned when the chain does not have the requested block yet
	ErrBlockNotFound = errors.New("block not found")

	// ErrTransactionNotFound is returned when the chain does not return a transaction or receipt
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrUnknownCommand is returned when a queue message carries an unsupported command
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidMessage is returned when a queue message payload cannot be decoded
	ErrInvalidMessage = errors.New("invalid message")
)

// IsPermanent reports whether retrying the failed unit of work cannot succeed
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNoOwnership) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidMessage)
}

// IsRetryLater reports whether the unit of work should be rescheduled after a delay
func IsRetryLater(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
