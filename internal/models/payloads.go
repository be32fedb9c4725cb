package models

// These structs define the JSON payloads returned by the upload endpoint and
// the outcomes exchanged between the dispatcher and the email transport.

// DispatchOutcome is the result of handing one page to the email transport.
type DispatchOutcome struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FailedRecord explains why a single page did not result in a sent email.
type FailedRecord struct {
	Page        int    `json:"page"`
	Email       string `json:"email,omitempty"`
	Reason      string `json:"reason"`
	TextSnippet string `json:"text_snippet,omitempty"`
}

// BatchResult is the report for one master document.
// EmailsSent + EmailsFailed always equals TotalPages.
type BatchResult struct {
	TotalPages    int            `json:"total_pages"`
	EmailsSent    int            `json:"emails_sent"`
	EmailsFailed  int            `json:"emails_failed"`
	FailedRecords []FailedRecord `json:"failed_records"`
}

// ErrorResponse is the body of every non-200 API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON form of the login endpoint input.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the caller's session state.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}
