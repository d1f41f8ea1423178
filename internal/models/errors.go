package models

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrMissingField           = errors.New("missing required field")
	ErrDuplicateReference     = errors.New("duplicate reference number")
	ErrCommentIndexOutOfRange = errors.New("comment index out of range")
	ErrEmptyComment           = errors.New("comment is empty")
	ErrThrottled              = errors.New("too many reservations")
	ErrUnsupportedImage       = errors.New("only jpeg, png and gif images are allowed")
)
