// Package signature describes the call shape of intercepted functions.
//
// A Signature is an ordered list of parameters with their kinds and defaults.
// It is compared structurally, never as a formatted string, against an
// AllowList of signatures known to work with a domain's interceptors. Each
// allow-list entry carries a semantic version of the wrapped library so that
// compatibility can be checked against a version constraint.
//
// The package also offers argument helpers. Lookup and Replace find a
// parameter's value in positional or keyword arguments. Validate performs a
// structural arity and keyword check.
package signature
