package repository

import "errors"

var (
	// Common errors
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrNoTransaction  = errors.New("operation requires a transaction")

	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")

	// Security question errors
	ErrQuestionNotFound = errors.New("security question not found")
	ErrAnswersExist     = errors.New("security answers already configured")
)
