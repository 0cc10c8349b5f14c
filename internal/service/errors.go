package service

import "errors"

var (
	ErrUserBlocked    = errors.New("account is blocked")
	ErrUserRestricted = errors.New("account is restricted")

	ErrUserNotFound    = errors.New("user not found")
	ErrWarningNotFound = errors.New("warning not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")

	ErrNotOwner         = errors.New("you don't own this resource")
	ErrNotEditable      = errors.New("only approved posts can be edited")
	ErrAlreadyModerated = errors.New("post was already moderated")
	ErrInvalidDecision  = errors.New("decision must be APPROVED or REJECTED")
	ErrPinLimit         = errors.New("at most 4 posts can be pinned at once")
	ErrAlreadyPinned    = errors.New("post is already pinned")
	ErrNotPinned        = errors.New("post is not pinned")
	ErrPostNotApproved  = errors.New("post is not approved")

	ErrTokenInvalid  = errors.New("token expired or invalid")
	ErrTokenExpired  = errors.New("token expired")
	ErrResendTooSoon = errors.New("please wait before requesting another code")
)

// ValidationError wraps an input validation failure so callers can tell it
// apart from database errors
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error) error {
	if err == nil {
		return nil
	}

	return &ValidationError{Err: err}
}
