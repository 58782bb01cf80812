// Package common holds the error values shared by the services and the HTTP layer.
package common

import "errors"

var (
	// ErrUnauthenticated means that the caller identity is missing or cannot be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCaller means that the caller identity is present but not an integer user id.
	ErrInvalidCaller = errors.New("invalid caller identity")

	// ErrInvalidArgument is returned for requests that are malformed before touching the store.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrRegistrationFailed covers every failure of the registration operation.
	ErrRegistrationFailed = errors.New("register operation failed")

	// ErrInvalidCredentials is returned by login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken is returned for bearer tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")
)
