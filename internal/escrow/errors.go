package escrow

import "errors"

var (
	ErrUnauthorized     = errors.New("caller is not the client")
	ErrEmptySchedule    = errors.New("milestone schedule is empty")
	ErrInvalidAmount    = errors.New("milestone amount must be positive")
	ErrScheduleMismatch = errors.New("funding does not match milestone schedule")
	ErrAlreadyCompleted = errors.New("all milestones already released")
	ErrReentrantCall    = errors.New("reentrant call")
)
