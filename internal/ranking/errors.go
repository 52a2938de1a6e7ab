package ranking

import "fmt"

// ParseError reports an oracle reply that could not be turned into evaluations
type ParseError struct {
	Message string
	Reply   string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluation parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
