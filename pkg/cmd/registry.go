// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/aiflow/pkg/registry"
)

// NewRegistry registers the built-in nodes, then the node plugins found under
// pluginsPath when it is set.
func NewRegistry(logger *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	if pluginsPath == "" {
		return reg, nil
	}

	_, err := reg.LoadNodePlugins(pluginsPath)
	if err != nil {
		return nil, err
	}

	return reg, nil
}
