// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	logn "github.com/corvand/continuo/pkg/nodes/log"
	"github.com/corvand/continuo/pkg/nodes/output"
	"github.com/corvand/continuo/pkg/nodes/transform"
	"github.com/corvand/continuo/pkg/registry"
)

func registerNodePlugins(ctx context.Context, reg *registry.Registry, pluginsPath string) {
	nodePlugins, err := reg.LoadNodePlugins(ctx, pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range nodePlugins {
		reg.RegisterNode(plugin)
	}
}

func registerNativeNodes(reg *registry.Registry) {
	reg.RegisterNode(output.NewOutputNodeFactory())
	reg.RegisterNode(transform.NewTransformNodeFactory())
	reg.RegisterNode(logn.NewLogNodeFactory())
}

func NewRegistry(ctx context.Context, log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		registerNodePlugins(ctx, reg, pluginsPath)
	}

	registerNativeNodes(reg)

	return reg
}
