package factory

import "errors"

var (
	ErrIndexOutOfRange = errors.New("registry index out of range")
	ErrProjectNotFound = errors.New("project not found")
)
