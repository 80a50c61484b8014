package repository

import "errors"

// Sentinel errors for session store operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrEmptySessionID = errors.New("empty session id")
)
