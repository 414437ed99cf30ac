package common

// AccessTokenHeaderName is the HTTP header carrying the bearer token.
const AccessTokenHeaderName = "Authorization"

// BearerPrefix precedes the token in AccessTokenHeaderName.
const BearerPrefix = "Bearer "

// Workflow status values. Transitions are driven by the external Workflow API.
const (
	StatusSubmitted = "submitted"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IsKnownStatus reports whether s is one of the four workflow statuses.
func IsKnownStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
