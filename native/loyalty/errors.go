package loyalty

import "errors"

var (
	ErrNotOwner           = errors.New("loyalty: caller is not the owner")
	ErrNotAuthorized      = errors.New("loyalty: caller is not authorized")
	ErrDuplicateToken     = errors.New("loyalty: token already minted")
	ErrOverflow           = errors.New("loyalty: balance overflow")
	ErrInvalidAmount      = errors.New("loyalty: invalid amount")
	ErrNotInitialized     = errors.New("loyalty: registry not initialized")
	ErrAlreadyInitialized = errors.New("loyalty: registry already initialized")
)
