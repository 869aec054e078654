package grouper

import (
	"fmt"
	"sort"
	"strings"
)

// Cluster is a sorted set of identities connected through a chain of
// within-threshold pairs.
type Cluster []string

// unionFind is a path-compressed disjoint set over string identities.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string), rank: make(map[string]int)}
}

func (u *unionFind) find(x string) string {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := u.find(p)
	u.parent[x] = root
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Clusters joins every key with its neighbors and returns the connected
// components, each sorted, ordered by their first identity.
func Clusters(d Duplicates) []Cluster {
	uf := newUnionFind()
	for id, ids := range d {
		uf.find(id)
		for _, n := range ids {
			uf.union(id, n)
		}
	}

	byRoot := make(map[string]Cluster)
	for id := range uf.parent {
		root := uf.find(id)
		byRoot[root] = append(byRoot[root], id)
	}

	out := make([]Cluster, 0, len(byRoot))
	for _, c := range byRoot {
		if len(c) < 2 {
			continue
		}
		sort.Strings(c)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// KeepPolicy decides which members of each cluster are removed.
type KeepPolicy int

const (
	// KeepNone removes every identity that has a neighbor.
	KeepNone KeepPolicy = iota
	// KeepFirst keeps the first identity of each cluster in enumeration
	// order and removes the rest.
	KeepFirst
)

// String returns the command line name of the policy.
func (p KeepPolicy) String() string {
	if p == KeepFirst {
		return "first"
	}
	return "none"
}

// ParseKeepPolicy parses "none" or "first".
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return KeepNone, nil
	case "first":
		return KeepFirst, nil
	default:
		return 0, fmt.Errorf("unknown keep policy %q", s)
	}
}

// RemovalSet applies the policy. order lists identities in enumeration order
// and is only consulted by KeepFirst; identities missing from order sort
// after the listed ones, by name.
func RemovalSet(d Duplicates, policy KeepPolicy, order []string) Set {
	if policy == KeepNone {
		return FlattenToRemovalSet(d)
	}

	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	before := func(a, b string) bool {
		ra, okA := rank[a]
		rb, okB := rank[b]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return a < b
		}
	}

	out := make(Set)
	for _, c := range Clusters(d) {
		keep := c[0]
		for _, id := range c[1:] {
			if before(id, keep) {
				keep = id
			}
		}
		for _, id := range c {
			if id != keep {
				out[id] = struct{}{}
			}
		}
	}
	return out
}
