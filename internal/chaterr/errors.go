package chaterr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across repositories, sessions and handlers.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomNotFound     = errors.New("room not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidContent   = errors.New("invalid content")
	ErrRepRequired      = errors.New("rep required for non-individual company room")
	ErrProtocol         = errors.New("protocol error")
)

// InvalidContent wraps ErrInvalidContent with a specific reason so callers
// can surface it while errors.Is still matches.
func InvalidContent(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidContent, reason)
}
