package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidRange = errors.New("invalid price range")
	ErrRateLimited  = errors.New("rate limited")
	ErrLockHeld     = errors.New("lock already held")
)

// UpstreamError is a non-2xx response from the price provider. It carries the
// upstream HTTP status so the boundary can map it back to the caller, and
// matches ErrRateLimited via errors.Is when the status is 429.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Body)
}

// Is lets callers branch on errors.Is(err, ErrRateLimited) instead of
// inspecting status codes.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}
