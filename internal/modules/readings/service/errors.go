package service

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks a failed store round-trip. The service does not
// retry; callers map it to a service-unavailable response.
var ErrStoreUnavailable = errors.New("store unavailable")

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
