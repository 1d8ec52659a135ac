package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid job state")
	ErrCollaborator = errors.New("collaborator failure")
)
