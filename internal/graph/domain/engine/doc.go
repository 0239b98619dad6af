// Package engine wires command validation, state replay, deciders, and the
// event journal into a single command execution pipeline.
package engine
