package step

import "sort"

// Graph orders sibling steps by their DependsOn/DependencyOf edges.
// An edge A -> B means A must reach a terminal status before B runs.
type Graph struct {
	steps []*Step
	index map[string]int
	preds map[string][]string
	succs map[string][]string
	order []*Step
}

// NewGraph validates sibling steps and computes a stable topological order.
// Ties are broken by declaration order.
func NewGraph(steps []*Step) (*Graph, error) {
	g := &Graph{
		steps: steps,
		index: make(map[string]int, len(steps)),
		preds: make(map[string][]string, len(steps)),
		succs: make(map[string][]string, len(steps)),
	}

	for i, s := range steps {
		key := s.ID().String()
		if _, exists := g.index[key]; exists {
			return nil, NewStepDuplicateError(key)
		}
		g.index[key] = i
	}

	for _, s := range steps {
		to := s.ID().String()
		for _, dep := range s.dependsOn {
			from := dep.String()
			if _, ok := g.index[from]; !ok {
				return nil, NewDependencyMissingError(to, from)
			}
			g.addEdge(from, to)
		}
		from := s.ID().String()
		for _, dep := range s.dependencyOf {
			target := dep.String()
			if _, ok := g.index[target]; !ok {
				return nil, NewDependencyMissingError(from, target)
			}
			g.addEdge(from, target)
		}
	}

	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

func (g *Graph) addEdge(from, to string) {
	for _, existing := range g.succs[from] {
		if existing == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

func (g *Graph) sort() ([]*Step, error) {
	inDegree := make(map[string]int, len(g.steps))
	for _, s := range g.steps {
		inDegree[s.ID().String()] = len(g.preds[s.ID().String()])
	}

	var ready []int
	for i, s := range g.steps {
		if inDegree[s.ID().String()] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]*Step, 0, len(g.steps))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]

		s := g.steps[next]
		order = append(order, s)
		for _, succ := range g.succs[s.ID().String()] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, g.index[succ])
			}
		}
	}

	if len(order) != len(g.steps) {
		return nil, NewCyclicDependencyError(g.findCycle())
	}
	return order, nil
}

// findCycle returns one cycle as a closed path, e.g. [a b c a].
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.steps))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, succ := range g.succs[id] {
			switch color[succ] {
			case gray:
				for i, v := range stack {
					if v == succ {
						cycle = append(append([]string{}, stack[i:]...), succ)
						return true
					}
				}
			case white:
				if visit(succ) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, s := range g.steps {
		id := s.ID().String()
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// Order returns steps in execution order.
func (g *Graph) Order() []*Step {
	order := make([]*Step, len(g.order))
	copy(order, g.order)
	return order
}

// Predecessors returns the steps that must be terminal before id may run.
func (g *Graph) Predecessors(id ID) []*Step {
	keys := g.preds[id.String()]
	preds := make([]*Step, 0, len(keys))
	for _, key := range keys {
		preds = append(preds, g.steps[g.index[key]])
	}
	return preds
}

// Len returns the number of steps in the graph.
func (g *Graph) Len() int {
	return len(g.steps)
}
