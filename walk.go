package promql

import "github.com/go-faster/errors"

// Visitor is the callback pair invoked by Walk around each node.
type Visitor interface {
	// Enter is called before the node's children are visited. Returning
	// false stops the traversal.
	Enter(node Node) bool
	// Leave is called after the node's children are visited. Returning
	// false stops the traversal.
	Leave(node Node) bool
}

// Walk traverses the tree rooted at node in depth-first order, calling
// v.Enter before and v.Leave after visiting the children of each node.
// Children are visited left to right.
//
// It reports whether the whole tree was visited: false means a callback
// stopped the traversal early.
func Walk(v Visitor, node Node) bool {
	if !v.Enter(node) {
		return false
	}
	for _, child := range Children(node) {
		if !Walk(v, child) {
			return false
		}
	}
	return v.Leave(node)
}

type inspector func(Node) bool

func (f inspector) Enter(node Node) bool { return f(node) }

func (inspector) Leave(Node) bool { return true }

// Inspect traverses the tree in depth-first order, calling f on each
// node before its children. If f returns false, the traversal stops.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// Children returns the immediate child nodes of node, left to right.
func Children(node Node) []Node {
	switch n := node.(type) {
	case *NumberLiteral, *StringLiteral, *VectorSelector:
		return nil
	case *MatrixSelector:
		return []Node{n.VectorSelector}
	case *SubqueryExpr:
		return []Node{n.Expr}
	case *ParenExpr:
		return []Node{n.Expr}
	case *UnaryExpr:
		return []Node{n.Expr}
	case *BinaryExpr:
		return []Node{n.LHS, n.RHS}
	case *Call:
		children := make([]Node, 0, len(n.Args))
		for _, arg := range n.Args {
			children = append(children, arg)
		}
		return children
	case *AggregateExpr:
		if n.Param == nil {
			return []Node{n.Expr}
		}
		return []Node{n.Expr, n.Param}
	default:
		panic(errors.Errorf("unhandled node type %T", node))
	}
}
