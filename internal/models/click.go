package models

import "time"

// ClickEvent represents a single visit of a short link.
// The HTTP layer builds it from the request; the click service uses
// Timestamp as the new lastClickedAt and the rest for logging.
type ClickEvent struct {
	Code      string    // The short code that was visited
	Timestamp time.Time // When the click occurred
	UserAgent string    // Browser/client information
	IPAddress string    // Client IP address
}
