package staging

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound covers both a missing request and a request owned by someone
// else; callers cannot distinguish the two.
var ErrNotFound = errors.New("request not found or access denied")

// ErrConflict signals an optimistic-lock collision; the caller may retry.
var ErrConflict = errors.New("concurrent update conflict, please retry")

// ErrInsufficientCredits signals the user cannot pay for HD generation.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotApproved signals GenerateHd was called before the preview was
// approved.
var ErrNotApproved = errors.New("preview must be approved before generating HD")

// ErrHdNotPaid signals a download attempt on a request whose HD credit was
// never deducted.
var ErrHdNotPaid = errors.New("HD access requires credit payment")

// ValidationError reports malformed input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// InvalidTransitionError reports an operation attempted from an illegal
// source status.
type InvalidTransitionError struct {
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status: %s", e.Attempted, e.Current)
}

// RateLimitError reports an exhausted regeneration budget.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("preview regeneration limit reached (%d/hour), please wait", maxRegensPerHour)
}
