package children

import "errors"

var (
	ErrChildNotFound = errors.New("child not found")
	ErrValidation    = errors.New("validation error")
)
