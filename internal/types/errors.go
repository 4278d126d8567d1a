package types

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network hiccups, timeouts,
// tool endpoints that are momentarily unavailable.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient satisfies the retry driver's classification check.
func (e *TransientError) Transient() bool { return true }

// CredentialError is fatal for the whole signature run and is never retried.
type CredentialError struct {
	Name string // the missing or rejected credential, e.g. an env var name
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %s missing or invalid", e.Name)
}

// IsTransient reports whether any error in the chain opts into retries.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

// IsCredential reports whether the chain contains a credential failure.
func IsCredential(err error) bool {
	var c *CredentialError
	return errors.As(err, &c)
}
