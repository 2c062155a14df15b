package model

import (
	"time"
)

// AdmissionCode is a single-use voter code for a creator-pay poll.
// Used flips false -> true once and is never reset.
type AdmissionCode struct {
	ID        int64
	PollID    int64
	Code      string
	Used      bool
	UsedAt    *time.Time // Pointer to allow for NULL
	CreatedAt time.Time
}
