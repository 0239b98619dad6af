// Package errors provides structured error handling with machine-readable codes.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Graph errors
	CodeGraphAlreadyExists      Code = "GRAPH_ALREADY_EXISTS"
	CodeGraphNotCreated         Code = "GRAPH_NOT_CREATED"
	CodeGraphDeleted            Code = "GRAPH_DELETED"
	CodeGraphNameEmpty          Code = "GRAPH_NAME_EMPTY"
	CodeGraphUpdateEmpty        Code = "GRAPH_UPDATE_EMPTY"
	CodeGraphUpdateFieldUnknown Code = "GRAPH_UPDATE_FIELD_UNKNOWN"

	// Node errors
	CodeNodeIDRequired     Code = "NODE_ID_REQUIRED"
	CodeNodeAlreadyExists  Code = "NODE_ALREADY_EXISTS"
	CodeNodeNotFound       Code = "NODE_NOT_FOUND"
	CodeNodeLabelEmpty     Code = "NODE_LABEL_EMPTY"
	CodeNodeStillConnected Code = "NODE_STILL_CONNECTED"

	// Edge errors
	CodeEdgeIDRequired    Code = "EDGE_ID_REQUIRED"
	CodeEdgeAlreadyExists Code = "EDGE_ALREADY_EXISTS"
	CodeEdgeNotFound      Code = "EDGE_NOT_FOUND"
	CodeEdgeSourceMissing Code = "EDGE_SOURCE_MISSING"
	CodeEdgeTargetMissing Code = "EDGE_TARGET_MISSING"
	CodeEdgeSelfLoop      Code = "EDGE_SELF_LOOP"
	CodeEdgeCategoryEmpty Code = "EDGE_CATEGORY_EMPTY"

	// Command errors
	CodeCommandTypeUnknown Code = "COMMAND_TYPE_UNKNOWN"
	CodeCommandInvalid     Code = "COMMAND_INVALID"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeStorageFailure      Code = "STORAGE_FAILURE"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"

	// Content addressing errors
	CodeHashingFailed Code = "HASHING_FAILED"
	CodeChainBroken   Code = "CHAIN_BROKEN"
	CodeSequenceGap   Code = "SEQUENCE_GAP"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeGraphNameEmpty,
		CodeGraphUpdateEmpty,
		CodeGraphUpdateFieldUnknown,
		CodeNodeIDRequired,
		CodeNodeLabelEmpty,
		CodeEdgeIDRequired,
		CodeEdgeSelfLoop,
		CodeEdgeCategoryEmpty,
		CodeCommandTypeUnknown,
		CodeCommandInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeGraphAlreadyExists,
		CodeGraphNotCreated,
		CodeGraphDeleted,
		CodeNodeAlreadyExists,
		CodeNodeStillConnected,
		CodeEdgeAlreadyExists,
		CodeEdgeSourceMissing,
		CodeEdgeTargetMissing:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeNodeNotFound,
		CodeEdgeNotFound:
		return codes.NotFound

	// Aborted - stale state, caller should reload and retry
	case CodeConcurrencyConflict:
		return codes.Aborted

	// DataLoss - integrity violations in the persisted log
	case CodeChainBroken,
		CodeSequenceGap:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
