package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("analysis not found")
	ErrAlreadyExists = errors.New("analysis already exists")
	ErrNotRanked     = errors.New("analysis not ranked")
	ErrInvalidLimit  = errors.New("invalid ranking limit")
	ErrInvalidResult = errors.New("invalid analysis result")
)
