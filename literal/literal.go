// Package literal implements parsers and formatters for PromQL literal
// tokens: durations, quoted strings and numbers.
//
// The lexer only splits the input into tokens, it does not interpret
// them. The functions here turn the raw token text into values and are
// also usable on their own, e.g. to validate a duration from a config
// file.
package literal

import "fmt"

// FormatError reports a literal that does not conform to its grammar.
type FormatError struct {
	// Raw is the original literal text.
	Raw string
	// Reason describes what is wrong with it.
	Reason string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Raw)
}
