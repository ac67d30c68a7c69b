// Package identity contains the tenant and session boundary.
//
// It resolves a caller's verified identity into a per-request session
// context, re-validating tenant membership on every resolution so that a
// caller can never act against a tenant it no longer belongs to.
package identity
