// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendergraph

// Store is the append-only node arena of one recording cycle.
//
// Indices are dense and stable: appending never moves an existing node's
// index, which edges rely on.
type Store struct {
	nodes []Node
	edges int
}

// NewStore creates a store with room for capacity nodes.
func NewStore(capacity int) *Store {
	return &Store{nodes: make([]Node, 0, capacity)}
}

// Append adds n as the next node and returns its index. The node's Index
// field is overwritten with that index.
func (s *Store) Append(n Node) NodeIndex {
	idx := NodeIndex(len(s.nodes))
	n.Index = idx
	for i := range n.Edges {
		n.Edges[i].To = idx
	}
	s.nodes = append(s.nodes, n)
	s.edges += len(n.Edges)
	return idx
}

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.nodes) }

// EdgeCount returns the number of dependency edges across all nodes.
func (s *Store) EdgeCount() int { return s.edges }

// Node returns the node at idx.
func (s *Store) Node(idx NodeIndex) (Node, bool) {
	if idx < 0 || int(idx) >= len(s.nodes) {
		return Node{}, false
	}
	return s.nodes[idx], true
}

// Nodes returns the nodes in creation order. The slice is owned by the
// store and must not be modified.
func (s *Store) Nodes() []Node { return s.nodes }

// Clear drops every node, keeping the allocated capacity.
func (s *Store) Clear() {
	clear(s.nodes)
	s.nodes = s.nodes[:0]
	s.edges = 0
}
