// Package app assembles the graph runtime: durable stores, the command
// engine, inline projection application, and the graphd server lifecycle.
package app
