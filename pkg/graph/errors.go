package graph

import (
	"errors"
	"strings"
)

// ErrCyclicGraph is the sentinel wrapped by CyclicGraphError.
var ErrCyclicGraph = errors.New("workflow graph contains a cycle")

// CyclicGraphError reports a cycle found while ordering a workflow graph. Path
// starts and ends with the same node id.
type CyclicGraphError struct {
	Path []string
}

func (e *CyclicGraphError) Error() string {
	if len(e.Path) == 0 {
		return ErrCyclicGraph.Error()
	}

	return ErrCyclicGraph.Error() + ": " + strings.Join(e.Path, " -> ")
}

func (e *CyclicGraphError) Unwrap() error {
	return ErrCyclicGraph
}

// IsCyclicGraph checks if an error indicates a cyclic workflow graph.
func IsCyclicGraph(err error) bool {
	return errors.Is(err, ErrCyclicGraph)
}
