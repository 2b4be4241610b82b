package backend

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError covers everything that prevented a usable response:
// connectivity, timeouts, and bodies that could not be decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a response the backend produced on purpose: a non-2xx
// status or an envelope with success=false.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server error (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.Status, e.Message)
}

// UserMessage picks the text to show a user for err: the server-supplied
// message when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var se *ServerError
	if errors.As(err, &se) && strings.TrimSpace(se.Message) != "" {
		return se.Message
	}
	return fallback
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
