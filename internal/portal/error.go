package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// PortalError represents an error returned by the portal.
type PortalError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *PortalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("portal error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("portal error (%s): %s", e.Code, e.Message)
}

// IsNotFound returns true if the module does not exist.
func (e *PortalError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == "not_found"
}

// IsForbidden returns true if the credential was rejected or has expired.
func (e *PortalError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden || e.Code == "forbidden"
}

// IsUnauthenticated returns true if no valid credential was presented.
func (e *PortalError) IsUnauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Code == "unauthenticated"
}

// UserMessage maps the three discriminated remote errors to clearer
// user-facing messages; everything else is surfaced verbatim.
func (e *PortalError) UserMessage() string {
	switch {
	case e.IsNotFound():
		return "Module not found on the portal. It may have been deleted since this tab was opened."
	case e.IsForbidden():
		return "The portal rejected your credential. Your API token may have expired or lacks module access."
	case e.IsUnauthenticated():
		return "Not signed in to the portal. Run 'lmc portal add' to store a credential."
	default:
		return e.Message
	}
}

// parseErrorResponse extracts error information from a non-2xx response.
func parseErrorResponse(statusCode int, body []byte) error {
	perr := &PortalError{StatusCode: statusCode, Code: "unknown_error", Message: string(body)}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		perr.Code = env.Error.Code
		perr.Message = env.Error.Message
	} else if err == nil {
		perr.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	return perr
}

// AsPortalError extracts a PortalError from an error chain.
func AsPortalError(err error) (*PortalError, bool) {
	var perr *PortalError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
