package engine

import (
	"time"

	"github.com/latticeworks/lattice/internal/graph/domain/aggregate"
	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
	apperrors "github.com/latticeworks/lattice/internal/platform/errors"
)

const (
	rejectionCodeCommandInvalid     = string(apperrors.CodeCommandInvalid)
	rejectionCodeCommandTypeUnknown = string(apperrors.CodeCommandTypeUnknown)
	rejectionCodeGraphNotCreated    = string(apperrors.CodeGraphNotCreated)
	rejectionCodeGraphDeleted       = string(apperrors.CodeGraphDeleted)
)

// CoreDecider routes commands to the per-entity deciders by command domain.
// Node and edge commands are gated on the graph being created and not
// deleted; the graph decider enforces its own lifecycle checks.
type CoreDecider struct{}

// Decide returns the decision for a command against replayed aggregate state.
func (CoreDecider) Decide(state any, cmd command.Command, now func() time.Time) command.Decision {
	agg, err := aggregate.AssertState[aggregate.State](state)
	if err != nil {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeCommandInvalid,
			Message: "aggregate state is unavailable",
		})
	}

	switch cmd.Type.Domain() {
	case "graph":
		return graph.Decide(agg.Graph, cmd, now)
	case "node":
		if rejection, ok := requireActiveGraph(agg); !ok {
			return command.Reject(rejection)
		}
		return node.Decide(agg.Nodes[cmd.EntityID], cmd, agg.NodeConnected, now)
	case "edge":
		if rejection, ok := requireActiveGraph(agg); !ok {
			return command.Reject(rejection)
		}
		return edge.Decide(agg.Edges[cmd.EntityID], cmd, agg.NodePresent, now)
	}

	return command.Reject(command.Rejection{
		Code:    rejectionCodeCommandTypeUnknown,
		Message: "command type is unknown",
	})
}

// requireActiveGraph gates entity commands on graph lifecycle.
func requireActiveGraph(agg aggregate.State) (command.Rejection, bool) {
	if !agg.Graph.Created {
		return command.Rejection{
			Code:    rejectionCodeGraphNotCreated,
			Message: "graph does not exist",
		}, false
	}
	if agg.Graph.Deleted {
		return command.Rejection{
			Code:    rejectionCodeGraphDeleted,
			Message: "graph is deleted",
		}, false
	}
	return command.Rejection{}, true
}
