package identity

import "errors"

// ErrStorageUnavailable is returned when the identifier cannot be read from
// or written to persistent storage. The board cannot join its topic without
// it, so callers treat this as fatal.
var ErrStorageUnavailable = errors.New("identity storage unavailable")
