package social

import (
	"errors"
	"fmt"
)

// ErrSelfFollow is the sentinel behind SelfFollowError.
var ErrSelfFollow = errors.New("self_follow")

// SelfFollowError rejects a follow or unfollow aimed at the acting user.
type SelfFollowError struct {
	Op     string
	UserID int64
}

func (e SelfFollowError) Error() string {
	return fmt.Sprintf("%s: %v: user %d", e.Op, ErrSelfFollow, e.UserID)
}

func (e SelfFollowError) Unwrap() error { return ErrSelfFollow }

// IsSelfFollow reports whether err is a SelfFollowError.
func IsSelfFollow(err error) bool { return errors.Is(err, ErrSelfFollow) }
