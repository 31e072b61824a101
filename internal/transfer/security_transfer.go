package transfer

// RequestMeta describes the trigger request for audit logging and per-IP
// violation tracking.
type RequestMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Method    string `json:"method"`
	Path      string `json:"path"`
}

// AuthResult classifies one cron trigger authentication attempt.
type AuthResult struct {
	IsValid           bool   `json:"is_valid"`
	SecurityViolation bool   `json:"security_violation"`
	ViolationType     string `json:"violation_type,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

const (
	ViolationMissingSecret        = "missing_secret"
	ViolationMissingAuthHeader    = "missing_auth_header"
	ViolationEmptyAuthHeader      = "empty_auth_header"
	ViolationWrongAuthType        = "wrong_auth_type"
	ViolationMalformedBearerToken = "malformed_bearer_token"
	ViolationInvalidSecret        = "invalid_secret"
	ViolationRateLimited          = "rate_limited"
)
