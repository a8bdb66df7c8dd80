// Package registry provides the open mapping from node type names to node factories.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"

	"github.com/corvand/continuo/pkg/protocol"
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

// CreateNode instantiates a node of the given type. Unknown types fail
// explicitly so a workflow referencing them surfaces the gap instead of
// silently skipping.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not implemented", nodeType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid config for node type '%s': %w", nodeType, err)
	}

	return factory.Create(ctx, id, config)
}

// AvailableNodes returns the registered node type identifiers.
func (r *Registry) AvailableNodes() []string {
	types := make([]string, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	return types
}

// LoadNodePlugins loads node factories from compiled plugins under
// pluginsPath/nodes, each exporting a "Node" symbol.
func (r *Registry) LoadNodePlugins(ctx context.Context, pluginsPath string) ([]protocol.NodeFactory, error) {
	rootPath := pluginsPath + "/nodes"

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := r.logger.With(slog.String("path", pluginsPath))
	l.InfoContext(ctx, "Loading node plugins")

	pluginList := make([]protocol.NodeFactory, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup("Node")
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no Node symbol: %w", p, err)
		}

		factory, ok := v.(protocol.NodeFactory)
		if !ok {
			return nil, fmt.Errorf("plugin %s Node symbol is not a NodeFactory", p)
		}

		pluginList = append(pluginList, factory)

		l.InfoContext(ctx, "Loaded node plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
