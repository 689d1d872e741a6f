package executor

import (
	"sync"

	"github.com/Combine-Capital/tsqi/pkg/registry"
)

// Graph wires execution graph nodes to their downstream executors and to
// the component registry their collaborators resolve from. Each node has at
// most one downstream.
type Graph struct {
	registry *registry.Registry

	mu         sync.RWMutex
	downstream map[string]QueryExecutor
}

// NewGraph creates a graph backed by the given registry.
func NewGraph(reg *registry.Registry) *Graph {
	return &Graph{
		registry:   reg,
		downstream: make(map[string]QueryExecutor),
	}
}

// Registry returns the component registry.
func (g *Graph) Registry() *registry.Registry {
	return g.registry
}

// SetDownstream wires the downstream executor for the named node,
// replacing any previous wiring.
func (g *Graph) SetDownstream(nodeID string, exec QueryExecutor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.downstream[nodeID] = exec
}

// DownstreamExecutor returns the downstream wired for the named node, or
// nil.
func (g *Graph) DownstreamExecutor(nodeID string) QueryExecutor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.downstream[nodeID]
}

// GraphNode describes one node of the execution graph: its identity, its
// default executor Config, and the names of the cache plugin and serdes it
// resolves at construction.
type GraphNode struct {
	id         string
	config     *Config
	pluginName string
	serdesName string
	graph      *Graph
}

// NewGraphNode creates a node. The default config and the owning graph may
// be nil here; the executor constructor validates them.
func NewGraphNode(id string, cfg *Config, pluginName, serdesName string, graph *Graph) *GraphNode {
	return &GraphNode{
		id:         id,
		config:     cfg,
		pluginName: pluginName,
		serdesName: serdesName,
		graph:      graph,
	}
}

// ID returns the node's identifier.
func (n *GraphNode) ID() string { return n.id }

// DefaultConfig returns the node's default executor config.
func (n *GraphNode) DefaultConfig() *Config { return n.config }

// PluginName returns the registered name of the node's cache plugin.
func (n *GraphNode) PluginName() string { return n.pluginName }

// SerdesName returns the registered name of the node's result codec.
func (n *GraphNode) SerdesName() string { return n.serdesName }

// Graph returns the owning graph.
func (n *GraphNode) Graph() *Graph { return n.graph }
