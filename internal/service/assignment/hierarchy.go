package assignment

import "github.com/Domenick1991/discope/internal/domain"

// Hierarchy indexes the rental units of a center by id with parent and children lists.
type Hierarchy struct {
	units    map[int64]domain.RentalUnit
	parents  map[int64]int64
	children map[int64][]int64
}

func NewHierarchy(units []domain.RentalUnit) *Hierarchy {
	h := &Hierarchy{
		units:    make(map[int64]domain.RentalUnit, len(units)),
		parents:  make(map[int64]int64),
		children: make(map[int64][]int64),
	}
	for _, u := range units {
		h.units[u.ID] = u
	}
	seen := make(map[[2]int64]bool)
	link := func(parent, child int64) {
		if parent == child || seen[[2]int64{parent, child}] {
			return
		}
		seen[[2]int64{parent, child}] = true
		h.children[parent] = append(h.children[parent], child)
		if _, ok := h.parents[child]; !ok {
			h.parents[child] = parent
		}
	}
	for _, u := range units {
		if u.ParentID != nil {
			link(*u.ParentID, u.ID)
		}
		for _, c := range u.ChildrenIDs {
			link(u.ID, c)
		}
	}
	return h
}

func (h *Hierarchy) Unit(id int64) (domain.RentalUnit, bool) {
	u, ok := h.units[id]
	return u, ok
}

// Descendants walks the children lists breadth first.
func (h *Hierarchy) Descendants(id int64) []int64 {
	var out []int64
	visited := map[int64]bool{id: true}
	queue := append([]int64(nil), h.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, h.children[next]...)
	}
	return out
}

// Ascendants follows parent links up to the root.
func (h *Hierarchy) Ascendants(id int64) []int64 {
	var out []int64
	visited := map[int64]bool{id: true}
	for {
		parent, ok := h.parents[id]
		if !ok || visited[parent] {
			return out
		}
		id = parent
		visited[id] = true
		out = append(out, id)
	}
}

// Blocked returns the unit together with every unit its booking makes unavailable.
func (h *Hierarchy) Blocked(id int64) []int64 {
	out := []int64{id}
	out = append(out, h.Descendants(id)...)
	return append(out, h.Ascendants(id)...)
}
