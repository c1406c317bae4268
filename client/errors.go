package client

import (
	"errors"
	"fmt"
)

// ErrReservedField is returned when a filter uses a name of the request
// envelope ("page", "count_num").
var ErrReservedField = errors.New("client: filter uses a reserved field name")

// APIError is a response with status=false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "client: request failed"
	}
	return "client: " + e.Message
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string // truncated
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("client: http %d: %s", e.StatusCode, e.Body)
}
