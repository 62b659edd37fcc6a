package resolver

import (
	"github.com/vitebski/db-migrator/pkg/models"
	"github.com/yourbasic/graph"
)

// Edge is a dependency from a referencing table to a referenced table
type Edge struct {
	From models.TableID
	To   models.TableID
}

// Result is the outcome of ordering a schema's tables
type Result struct {
	// Order lists every table once; referenced tables precede referencing ones
	// except where a cycle had to be broken.
	Order []models.TableID
	// CycleEdges are the edges skipped because they closed a cycle
	CycleEdges []Edge
	// SelfReferences are foreign keys left out of the graph because they point at their own table
	SelfReferences []models.ForeignKey
	// External are foreign keys left out of the graph because one end is not a migrated table
	External []models.ForeignKey
	// CircularGroups are the strongly connected components with more than one table
	CircularGroups [][]models.TableID
}

const (
	unvisited = iota
	inProgress
	done
)

// Resolve orders tables so that every table follows the tables it references.
// Roots are visited in the order tables are given. Cycles are broken by
// skipping the edge that closes them, never by failing.
func Resolve(tables []models.Table, foreignKeys []models.ForeignKey) Result {
	var result Result

	index := make(map[models.TableID]int, len(tables))
	ids := make([]models.TableID, len(tables))
	for i, t := range tables {
		index[t.ID()] = i
		ids[i] = t.ID()
	}

	// Build the dependency graph; an edge v -> w means v references w
	g := graph.New(len(tables))
	for _, fk := range foreignKeys {
		if fk.IsSelfReference() {
			result.SelfReferences = append(result.SelfReferences, fk)
			continue
		}
		src, okSrc := index[fk.Source()]
		dst, okDst := index[fk.Target()]
		if !okSrc || !okDst {
			result.External = append(result.External, fk)
			continue
		}
		g.Add(src, dst)
	}

	// Immutable copy visits neighbors in increasing index order
	sorted := graph.Sort(g)

	state := make([]int, len(tables))
	var visit func(v int)
	visit = func(v int) {
		state[v] = inProgress
		sorted.Visit(v, func(w int, _ int64) bool {
			switch state[w] {
			case unvisited:
				visit(w)
			case inProgress:
				result.CycleEdges = append(result.CycleEdges, Edge{From: ids[v], To: ids[w]})
			}
			return false
		})
		state[v] = done
		result.Order = append(result.Order, ids[v])
	}

	for v := range tables {
		if state[v] == unvisited {
			visit(v)
		}
	}

	for _, component := range graph.StrongComponents(sorted) {
		if len(component) < 2 {
			continue
		}
		group := make([]models.TableID, len(component))
		for i, v := range component {
			group[i] = ids[v]
		}
		result.CircularGroups = append(result.CircularGroups, group)
	}

	return result
}

// Position maps each ordered table to its index in the order
func (r Result) Position() map[models.TableID]int {
	pos := make(map[models.TableID]int, len(r.Order))
	for i, id := range r.Order {
		pos[id] = i
	}
	return pos
}

// OrderForeignKeys returns the foreign keys grouped by referencing table in
// resolved order. Keys whose table is not in the order come last.
func (r Result) OrderForeignKeys(foreignKeys []models.ForeignKey) []models.ForeignKey {
	bySource := make(map[models.TableID][]models.ForeignKey)
	for _, fk := range foreignKeys {
		bySource[fk.Source()] = append(bySource[fk.Source()], fk)
	}

	ordered := make([]models.ForeignKey, 0, len(foreignKeys))
	for _, id := range r.Order {
		ordered = append(ordered, bySource[id]...)
		delete(bySource, id)
	}
	for _, fk := range foreignKeys {
		if _, left := bySource[fk.Source()]; left {
			ordered = append(ordered, fk)
		}
	}
	return ordered
}
