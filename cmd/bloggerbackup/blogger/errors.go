package blogger

import (
	"errors"
	"fmt"
)

var (
	ErrBlogNotFound     = errors.New("blog not found")
	ErrNoPostsLink      = errors.New("no posts link found")
	ErrInvalidPostsLink = errors.New("invalid posts link")
)

// APIError is returned when a response body carries an "error" object.
// Body holds the whole response as received.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error: %s", e.Body)
}

// LinkError adds the offending value to a posts link failure.
type LinkError struct {
	Link    string
	Wrapped error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Wrapped, e.Link)
}

func (e *LinkError) Unwrap() error { return e.Wrapped }
