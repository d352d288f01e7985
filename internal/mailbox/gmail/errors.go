package gmail

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrUnauthorized = errors.New("gmail: unauthorised (invalid credentials)")
	ErrRateLimited  = errors.New("gmail: rate limit exceeded")
	ErrNotFound     = errors.New("gmail: message not found")
)

// classify maps googleapi errors onto the package sentinels, keeping the cause.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Join(ErrUnauthorized, err)
	case http.StatusTooManyRequests:
		return errors.Join(ErrRateLimited, err)
	case http.StatusNotFound:
		return errors.Join(ErrNotFound, err)
	}
	return err
}
