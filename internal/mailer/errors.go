package mailer

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoRecipient means the replied-to author has no usable e-mail address.
	ErrNoRecipient = errors.New("reply target has no e-mail address")
	// ErrNotReply is returned when asked to notify about a top-level comment.
	ErrNotReply = errors.New("comment is not a reply")
	// ErrNotification matches every *NotificationError.
	ErrNotification = errors.New("reply notification failed")
)

// NotificationError reports a reply notification that could not be composed or delivered.
type NotificationError struct {
	CommentID uint
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify reply for comment %d: %v", e.CommentID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func (e *NotificationError) Is(target error) bool {
	return target == ErrNotification
}

// reason is a short metrics label for the failure.
func (e *NotificationError) reason() string {
	switch {
	case errors.Is(e.Err, ErrNoRecipient):
		return "no_recipient"
	case errors.Is(e.Err, ErrNotReply):
		return "not_reply"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
