package llm

import "fmt"

// OracleError represents a failed oracle call
type OracleError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *OracleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle error (%s): %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("oracle error (%s): %s", e.Provider, e.Message)
}

func (e *OracleError) Unwrap() error {
	return e.Cause
}
