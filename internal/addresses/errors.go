package addresses

import "errors"

// Address engine errors.
var (
	ErrAddressMetadataLengthMismatch = errors.New("address metadata length mismatch")
	ErrAddressAlreadyAttached        = errors.New("address already attached")
	ErrAddressHasPendingTransfers    = errors.New("address has pending transfers")
	ErrKeyReuse                      = errors.New("key reuse")
	ErrInsufficientBalance           = errors.New("insufficient balance")
	ErrEmptyAddressData              = errors.New("empty address data")
	ErrIndexConflict                 = errors.New("multiple addresses share the latest index")
	ErrNoSender                      = errors.New("no transfer sender configured")
	ErrZeroThreshold                 = errors.New("inputs threshold cannot be zero")
)
