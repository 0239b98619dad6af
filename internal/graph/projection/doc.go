// Package projection applies journal events to denormalized read-model
// stores. The applier mirrors every state-changing event into graph, node,
// and edge records; ordering and idempotency are enforced by the ordered
// applier using per-graph watermarks.
package projection
