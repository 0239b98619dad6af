// Package event defines the canonical event envelope and event-type registry
// used by the graph domain write path.
//
// Events are immutable business facts emitted by accepted decisions. The
// registry enforces envelope validity before persistence assigns sequence and
// content-identifier fields.
//
// A stable event contract is the foundation for replay, projection
// correctness, and external consumers that depend on the same semantic names.
package event
