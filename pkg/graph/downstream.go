package graph

import "github.com/dukex/aiflow/pkg/models"

// Downstream returns every node reachable from nodeID, breadth first. On the
// first hop only edges whose source handle equals handle, or that carry no
// handle, are followed; deeper hops follow every edge.
func Downstream(nodeID string, edges []*models.Edge, handle string) []string {
	type step struct {
		id     string
		handle string
	}

	queue := []step{{id: nodeID, handle: handle}}
	visited := map[string]bool{}
	found := map[string]bool{}
	downstream := []string{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current.id] {
			continue
		}

		visited[current.id] = true

		for _, edge := range edges {
			if edge.Source != current.id {
				continue
			}

			if current.handle != "" && edge.SourceHandle != "" && edge.SourceHandle != current.handle {
				continue
			}

			if found[edge.Target] {
				continue
			}

			found[edge.Target] = true
			downstream = append(downstream, edge.Target)
			queue = append(queue, step{id: edge.Target})
		}
	}

	return downstream
}

// SkipSet is a grow-only set of node ids excluded from a run.
type SkipSet struct {
	ids map[string]bool
}

func NewSkipSet() *SkipSet {
	return &SkipSet{ids: map[string]bool{}}
}

// Add inserts ids; existing members stay.
func (s *SkipSet) Add(ids ...string) {
	for _, id := range ids {
		s.ids[id] = true
	}
}

func (s *SkipSet) Has(id string) bool {
	return s.ids[id]
}

func (s *SkipSet) Len() int {
	return len(s.ids)
}
