package service

import "errors"

var (
	// ErrDuplicateLink means the owner already shortened this exact URL.
	ErrDuplicateLink = errors.New("the url entry already exists for the user")
	// ErrNotFound covers both a missing token and a token owned by someone else.
	ErrNotFound = errors.New("the given url token is not found")

	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("user not found or password incorrect")
)
