package vfs

import "github.com/m4mm0n/amFTPd-sub003/pkg/ftperr"

// Result is a resolver outcome: exactly one of NotFound, Denied, or Ok.
// Enumeration failures are reported as an empty node slice, never as an
// error.
type Result struct {
	Node *Node
	Err  *ftperr.Result
}

// Ok wraps a successfully resolved node.
func Ok(n *Node) Result {
	return Result{Node: n}
}

// NotFound reports that no provider could resolve the path.
func NotFound(reason string) Result {
	return Result{Err: ftperr.NotFound(reason)}
}

// Denied reports a resolved-but-inaccessible path (e.g. another group's
// pre entry for a non-siteop user).
func Denied(reason string) Result {
	return Result{Err: ftperr.Denied(reason)}
}

// IsOk reports whether the resolution succeeded.
func (r Result) IsOk() bool {
	return r.Err == nil && r.Node != nil
}
