// Package registry maps node types to the factories that build their executors.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"strings"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
)

var (
	ErrNodeTypeNotRegistered = errors.New("node type not registered")
	ErrInvalidPlugin         = errors.New("invalid node plugin")
)

// NodeInfo describes a registered node type for API consumers.
type NodeInfo struct {
	ID          models.NodeType `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[models.NodeType]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log.With("module", "registry"),
		nodeFactories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// RegisterNode adds a factory, replacing any factory with the same id.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	if _, exists := r.nodeFactories[factory.ID()]; exists {
		r.logger.Warn("Replacing node factory", "node_type", factory.ID())
	}

	r.nodeFactories[factory.ID()] = factory
}

func (r *Registry) IsRegistered(nodeType models.NodeType) bool {
	_, ok := r.nodeFactories[nodeType]

	return ok
}

func (r *Registry) CreateNode(nodeType models.NodeType, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotRegistered, nodeType)
	}

	return factory.Create(deps), nil
}

// Executors builds one executor per registered node type.
func (r *Registry) Executors(deps protocol.Dependencies) map[models.NodeType]protocol.NodeExecutor {
	executors := make(map[models.NodeType]protocol.NodeExecutor, len(r.nodeFactories))

	for id, factory := range r.nodeFactories {
		executors[id] = factory.Create(deps)
	}

	return executors
}

// GetAvailableNodes returns the registered factories sorted by id.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.nodeFactories))
	for _, factory := range r.nodeFactories {
		factories = append(factories, factory)
	}

	slices.SortFunc(factories, func(a, b protocol.NodeFactory) int {
		return strings.Compare(string(a.ID()), string(b.ID()))
	})

	return factories
}

func (r *Registry) Describe() []NodeInfo {
	factories := r.GetAvailableNodes()
	infos := make([]NodeInfo, 0, len(factories))

	for _, factory := range factories {
		infos = append(infos, NodeInfo{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return infos
}

// LoadNodePlugins opens every shared object under <pluginsPath>/nodes and
// registers the NodeFactory exported as the "Node" symbol.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	factories, err := loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
	if err != nil {
		return nil, err
	}

	for _, factory := range factories {
		r.RegisterNode(factory)
	}

	return factories, nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPlugin, p, err)
		}

		castV, ok := v.(T)
		if !ok {
			// Exported variables come back as pointers.
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("%w: %s exports %T", ErrInvalidPlugin, p, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded node plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}

// HealthCheck reports whether any node type is registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.nodeFactories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.nodeFactories)), true
}
