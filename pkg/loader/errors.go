package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Error codes reported by the analysis script.
const (
	CodeNumPyMissing   = "1000"
	CodeHatchetMissing = "1001"
	CodePathNotFound   = "1002"
	CodeUnknownType    = "1003"
	CodeReadFailed     = "1004"
	CodeTreeFailed     = "1005"
)

// ErrDisposed is returned by GetTree once the output has been disposed.
var ErrDisposed = errors.New("profiler output disposed")

// CollaboratorError is a structured error reported by the analysis script on
// stdout before exiting with a non-zero code.
type CollaboratorError struct {
	// Code identifies the failure, see the Code* constants.
	Code string
	// Message is the human readable description of the failure.
	Message string
	// Stderr is whatever the script wrote to stderr, for diagnostics.
	Stderr string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s -- %s", e.Code, e.Message)
}

// LocationError is returned when a profile location doesn't have the
// on-disk shape its profile type produces.
type LocationError struct {
	Path        string
	Type        string
	IsDirectory bool
}

func (e *LocationError) Error() string {
	kind := "file"
	if e.IsDirectory {
		kind = "directory"
	}
	return fmt.Sprintf("%s is not a valid %s profile %s", e.Path, e.Type, kind)
}

// ExitError is returned when the analysis script exits with a non-zero code
// without reporting a structured error.
type ExitError struct {
	// Code is the exit code of the script, -1 if it was killed by a signal.
	Code int
	// Stderr is whatever the script wrote to stderr, for diagnostics.
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("analysis script exited with code %d", e.Code)
}

// IsDependencyMissing returns true if err reports that a library required
// by the analysis script is not installed for the interpreter.
func IsDependencyMissing(err error) bool {
	var cErr *CollaboratorError
	if !errors.As(err, &cErr) {
		return false
	}
	return cErr.Code == CodeNumPyMissing || cErr.Code == CodeHatchetMissing
}

// envelope is the error document written by the analysis script.
type envelope struct {
	Error *struct {
		Code    errorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// errorCode accepts both JSON strings and numbers.
type errorCode string

func (c *errorCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = errorCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*c = errorCode(strconv.FormatInt(i, 10))
		return nil
	}
	*c = errorCode(n.String())
	return nil
}

// parseEnvelope returns the structured error contained in stdout, if any.
func parseEnvelope(stdout []byte, stderr string) (*CollaboratorError, bool) {
	var env envelope
	if err := json.Unmarshal(stdout, &env); err != nil || env.Error == nil {
		return nil, false
	}
	return &CollaboratorError{
		Code:    string(env.Error.Code),
		Message: env.Error.Message,
		Stderr:  stderr,
	}, true
}
