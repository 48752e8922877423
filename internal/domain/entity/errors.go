package entity

import "errors"

var (
	// ErrDateRequired is returned when a form is submitted without a date
	ErrDateRequired = errors.New("date is required")

	// ErrSubmissionInProgress is returned when a form is submitted while a
	// previous submission is still waiting for its response
	ErrSubmissionInProgress = errors.New("submission already in progress")

	// ErrStateNotFound is returned by stores that hold no state for a session
	ErrStateNotFound = errors.New("form state not found")
)
