package facades

import "fmt"

// UpstreamError signals that an external provider rejected or failed a call.
// Message carries the provider's own reason when one was returned.
type UpstreamError struct {
	Provider string
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
