// Package command defines the canonical command envelope and contract used
// across the write path.
//
// Commands express business intent from API callers and tooling. They are the
// stable boundary before domain deciders so that business rules are evaluated
// only against normalized inputs.
//
// The package-level registry exists to keep command behavior consistent for
// payload validation and actor identity defaults.
package command
