package storage

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateToken is returned by Insert when the token is already taken.
	ErrDuplicateToken = errors.New("duplicate token")
	// ErrDuplicateLink is returned by Insert when the owner already shortened the URL.
	ErrDuplicateLink = errors.New("duplicate link")
	ErrDuplicateUser = errors.New("duplicate user")
)

// LinkStorage is the authoritative record of token -> url -> owner.
// Lookups return (nil, nil) when nothing matches.
type LinkStorage interface {
	Insert(ctx context.Context, link *Link) error
	GetByToken(ctx context.Context, token string) (*Link, error)
	GetByTokenAndOwner(ctx context.Context, token, ownerID string) (*Link, error)
	ExistsByURLAndOwner(ctx context.Context, longURL, ownerID string) (bool, error)
	ExistsByTokenAndOwner(ctx context.Context, token, ownerID string) (bool, error)
	Delete(ctx context.Context, token string) error
	// IncrementClickCount must be a single atomic update on the store side.
	IncrementClickCount(ctx context.Context, token string) error
	GetClickCount(ctx context.Context, token string) (*int64, error)
}

type UserStorage interface {
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}
