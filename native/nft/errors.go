package nft

import "errors"

var (
	ErrTokenExists   = errors.New("nft: token already minted")
	ErrTokenNotFound = errors.New("nft: token not found")
	ErrZeroAddress   = errors.New("nft: zero address")
)
