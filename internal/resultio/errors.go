// Package resultio reads pre-computed classification results, the training
// taxonomy they refer to, and duplicate-count side files.
package resultio

import "fmt"

// ParseError reports a malformed input line.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

func parseErr(source string, line int, format string, args ...any) error {
	return &ParseError{Source: source, Line: line, Msg: fmt.Sprintf(format, args...)}
}
