package repository

import "errors"

var (
	// Credential errors.
	ErrAlreadyExists      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("username and password do not match")

	// Message errors.
	ErrUnknownSender    = errors.New("sender not in database")
	ErrUnknownRecipient = errors.New("recipient not in database")
	ErrNotFound         = errors.New("message not in database")
	ErrAlreadyArchived  = errors.New("message already archived")

	// ErrStoreUnavailable marks infrastructure failures (connection lost, driver errors).
	ErrStoreUnavailable = errors.New("store unavailable")
)

var domainErrors = []error{
	ErrAlreadyExists,
	ErrInvalidCredentials,
	ErrUnknownSender,
	ErrUnknownRecipient,
	ErrNotFound,
	ErrAlreadyArchived,
}

// IsDomainError reports whether err is an expected outcome of a store
// operation rather than an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
