// Package graph orders workflow nodes and computes the reach of conditional branches.
package graph

import "github.com/dukex/aiflow/pkg/models"

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

type frame struct {
	nodeID string
	next   int
}

// sorter holds the state of one depth-first traversal.
type sorter struct {
	adjacency map[string][]string
	state     map[string]visitState
	stack     []frame
	postOrder []string
}

func newSorter(nodes []*models.Node, edges []*models.Edge) *sorter {
	known := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		known[node.ID] = true
	}

	adjacency := make(map[string][]string, len(nodes))

	for _, edge := range edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}

		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
	}

	return &sorter{
		adjacency: adjacency,
		state:     make(map[string]visitState, len(nodes)),
		postOrder: make([]string, 0, len(nodes)),
	}
}

// visit walks everything reachable from root, appending finished nodes to
// postOrder. Neighbors are explored in edge order.
func (s *sorter) visit(root string) error {
	s.state[root] = inProgress
	s.stack = append(s.stack[:0], frame{nodeID: root})

	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		neighbors := s.adjacency[top.nodeID]

		if top.next == len(neighbors) {
			s.state[top.nodeID] = done
			s.postOrder = append(s.postOrder, top.nodeID)
			s.stack = s.stack[:len(s.stack)-1]

			continue
		}

		neighbor := neighbors[top.next]
		top.next++

		switch s.state[neighbor] {
		case unvisited:
			s.state[neighbor] = inProgress
			s.stack = append(s.stack, frame{nodeID: neighbor})
		case inProgress:
			return &CyclicGraphError{Path: s.cyclePath(neighbor)}
		case done:
		}
	}

	return nil
}

func (s *sorter) cyclePath(back string) []string {
	path := []string{}
	started := false

	for _, f := range s.stack {
		if f.nodeID == back {
			started = true
		}

		if started {
			path = append(path, f.nodeID)
		}
	}

	return append(path, back)
}

// Order returns nodes sorted so that every node comes after all of its
// predecessors. Roots are explored in node order and neighbors in edge order.
// Edges to or from unknown node ids are ignored.
func Order(nodes []*models.Node, edges []*models.Edge) ([]*models.Node, error) {
	s := newSorter(nodes, edges)

	for _, node := range nodes {
		if s.state[node.ID] != unvisited {
			continue
		}

		err := s.visit(node.ID)
		if err != nil {
			return nil, err
		}
	}

	byID := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		if _, exists := byID[node.ID]; !exists {
			byID[node.ID] = node
		}
	}

	ordered := make([]*models.Node, 0, len(s.postOrder))
	for i := len(s.postOrder) - 1; i >= 0; i-- {
		ordered = append(ordered, byID[s.postOrder[i]])
	}

	return ordered, nil
}

// Validate checks that the graph has no cycles.
func Validate(nodes []*models.Node, edges []*models.Edge) error {
	_, err := Order(nodes, edges)

	return err
}
