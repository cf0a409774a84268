package warehouse

import "fmt"

// HTTPError represents a non-200 response from the workspace API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("warehouse: HTTP %d: %s", e.StatusCode, e.Body)
}

// AuthError indicates the token was rejected.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("warehouse: authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// StatementError is a statement that reached a terminal state other than SUCCEEDED.
type StatementError struct {
	StatementID string
	State       string
	Code        string
	Message     string
}

func (e *StatementError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("warehouse: statement %s %s: %s: %s", e.StatementID, e.State, e.Code, e.Message)
	}
	return fmt.Sprintf("warehouse: statement %s %s: %s", e.StatementID, e.State, e.Message)
}
