package services

import "errors"

// Dashboard service errors
var (
	// Session errors
	ErrNoUpload = errors.New("session has no uploaded table")

	// Upload errors
	ErrEmptyUpload = errors.New("uploaded file is empty")
)
