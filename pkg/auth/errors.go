package auth

import "errors"

var (
	// ErrNotFound indicates the user id has no directory record.
	ErrNotFound = errors.New("auth: user not found")
	// ErrAlreadyExists indicates a duplicate add for an existing user id.
	ErrAlreadyExists = errors.New("auth: user already exists")
	// ErrInvalidRole indicates a role string that does not parse.
	ErrInvalidRole = errors.New("auth: invalid role")
	// ErrSelfRemoval indicates an admin tried to remove their own record.
	ErrSelfRemoval = errors.New("auth: cannot remove own account")
	// ErrStoreNotExist is returned by DirectoryStore.Load when nothing has
	// been persisted yet. It is an expected condition, not a failure.
	ErrStoreNotExist = errors.New("auth: directory snapshot does not exist")
)
