package slot

import "errors"

// Sentinel kinds for slot normalization errors.
var (
	ErrInvalidTime = errors.New("invalid time")
)
