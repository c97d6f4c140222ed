package errors

import (
	"fmt"
)

// HTTPError is the flattened form of an Error reported to callers that only
// need the classification, e.g. command line output.
type HTTPError struct {
	Code       int      `json:"code"`
	StatusCode int      `json:"status_code,omitempty"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	Cause      string   `json:"cause,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("[%03d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%03d/%d] %s", e.Code, e.StatusCode, e.Message)
}
