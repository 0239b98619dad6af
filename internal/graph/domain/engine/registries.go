package engine

import (
	"fmt"

	"github.com/latticeworks/lattice/internal/graph/domain/command"
	"github.com/latticeworks/lattice/internal/graph/domain/edge"
	"github.com/latticeworks/lattice/internal/graph/domain/event"
	"github.com/latticeworks/lattice/internal/graph/domain/graph"
	"github.com/latticeworks/lattice/internal/graph/domain/node"
)

// CoreDomain bundles the registration hooks that every core domain package
// exports. Adding a new core domain means creating a CoreDomain entry in
// CoreDomains() and wiring its fold function in the aggregate folder.
type CoreDomain struct {
	name             string
	RegisterCommands func(*command.Registry) error
	FoldHandledTypes func() []event.Type
}

// Name returns a human-readable label for error messages and diagnostics.
func (d CoreDomain) Name() string { return d.name }

// CoreDomains returns the authoritative list of core domain registrations.
func CoreDomains() []CoreDomain {
	return []CoreDomain{
		{
			name:             "graph",
			RegisterCommands: graph.RegisterCommands,
			FoldHandledTypes: graph.FoldHandledTypes,
		},
		{
			name:             "node",
			RegisterCommands: node.RegisterCommands,
			FoldHandledTypes: node.FoldHandledTypes,
		},
		{
			name:             "edge",
			RegisterCommands: edge.RegisterCommands,
			FoldHandledTypes: edge.FoldHandledTypes,
		},
	}
}

// BuildCommandRegistry registers every core domain's commands into a fresh
// registry.
func BuildCommandRegistry() (*command.Registry, error) {
	registry := command.NewRegistry()
	for _, domain := range CoreDomains() {
		if domain.RegisterCommands == nil {
			return nil, fmt.Errorf("domain %s has no command registration", domain.Name())
		}
		if err := domain.RegisterCommands(registry); err != nil {
			return nil, fmt.Errorf("register %s commands: %w", domain.Name(), err)
		}
	}
	return registry, nil
}
