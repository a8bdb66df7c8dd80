package workflow

import (
	"sort"

	"github.com/corvand/continuo/pkg/models"
)

// graph is the adjacency view of a workflow definition the executor walks.
type graph struct {
	nodes    map[string]*models.Node
	outgoing map[string][]string
	incoming map[string][]string
	order    []string
}

func buildGraph(def *models.WorkflowDefinition) *graph {
	g := &graph{
		nodes:    make(map[string]*models.Node, len(def.Nodes)),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}

	for id, node := range def.Nodes {
		g.nodes[id] = node
		g.order = append(g.order, id)
	}

	// Deterministic iteration independent of map ordering.
	sort.Strings(g.order)

	for _, edge := range def.Edges {
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge.Target)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge.Source)
	}

	return g
}

// startNodes returns the nodes execution begins from: input-typed nodes and
// nodes with no incoming edges.
func (g *graph) startNodes(entryPoint string) []string {
	if entryPoint != "" {
		if _, ok := g.nodes[entryPoint]; ok {
			return []string{entryPoint}
		}
	}

	var starts []string

	for _, id := range g.order {
		if g.nodes[id].Type == models.NodeTypeInput || len(g.incoming[id]) == 0 {
			starts = append(starts, id)
		}
	}

	return starts
}
