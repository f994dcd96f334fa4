package client

import "fmt"

// APIError is a non-2xx response from the media server. It carries the HTTP
// status so the retry policy can classify it.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

// HTTPStatus implements retry.StatusCoder.
func (e *APIError) HTTPStatus() int { return e.Status }
