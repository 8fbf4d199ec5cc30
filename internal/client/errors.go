package client

import (
	"errors"
	"fmt"
)

// ErrAbsoluteURL is returned when an authenticated call targets an absolute
// URL. Pre-signed URLs go through Fetch and Put, which send no credentials.
var ErrAbsoluteURL = errors.New("authenticated request to absolute url")

// APIError is returned for any response whose status code is not 2xx.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authenta api: %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// TransportError wraps failures that prevented a response from arriving
// (DNS, connection refused, timeouts, cancelled contexts).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("authenta transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx response body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("authenta decode: %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
