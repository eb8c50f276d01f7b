package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidRange = errors.New("invalid date range")
	ErrUnavailable  = errors.New("room not available in that range")
	ErrUnauthorized = errors.New("unauthorized")
)
