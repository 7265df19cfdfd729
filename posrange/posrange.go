// Package posrange provides byte positions in query strings for error
// reporting and AST introspection.
package posrange

// Pos is a byte offset into the query string.
type Pos int

// PositionRange is a half-open byte span [Start, End) in the query string.
type PositionRange struct {
	Start Pos
	End   Pos
}
