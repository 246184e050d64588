package chessdto

// DomainError is the wire form of a rejected operation.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess arbiter error"
}

// ErrorResponse wraps DomainError in every non-2xx JSON body.
type ErrorResponse struct {
	Error     DomainError `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}
