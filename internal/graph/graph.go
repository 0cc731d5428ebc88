// Package graph provides the kinematic tree topology used by the kinematics
// engine: joints are nodes and every non-root node has exactly one parent.
package graph

import (
	"fmt"
)

// NodeID identifies a joint. The root (universe) is always 0.
type NodeID = int

// Root is the universe node every tree starts from.
const Root NodeID = 0

// Node is a joint in the tree.
type Node struct {
	ID   NodeID `json:"id"`
	Name string `json:"name"`
}

// Tree is a rooted tree with cached support paths.
type Tree struct {
	nodes    []Node
	nameMap  map[string]NodeID
	parent   map[NodeID]NodeID
	children map[NodeID][]NodeID
	// Support cache; cleared whenever a node is added.
	supportCache map[NodeID][]NodeID
}

// NewTree returns a tree holding only the root node.
func NewTree(rootName string) *Tree {
	t := &Tree{
		nameMap:      make(map[string]NodeID),
		parent:       make(map[NodeID]NodeID),
		children:     make(map[NodeID][]NodeID),
		supportCache: make(map[NodeID][]NodeID),
	}
	t.nodes = append(t.nodes, Node{ID: Root, Name: rootName})
	t.nameMap[rootName] = Root
	return t
}

// AddNode appends a node below parent and returns its ID. Returns an error
// if the name is already used or the parent does not exist.
func (t *Tree) AddNode(name string, parent NodeID) (NodeID, error) {
	if _, exists := t.nameMap[name]; exists {
		return 0, fmt.Errorf("node %q already exists", name)
	}
	if parent < 0 || parent >= len(t.nodes) {
		return 0, fmt.Errorf("node %q: parent %d not found", name, parent)
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{ID: id, Name: name})
	t.nameMap[name] = id
	t.parent[id] = parent
	t.children[parent] = append(t.children[parent], id)
	t.supportCache = make(map[NodeID][]NodeID) // invalidate cached supports
	return id, nil
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Node looks up a node by ID.
func (t *Tree) Node(id NodeID) (Node, error) {
	if id < 0 || id >= len(t.nodes) {
		return Node{}, fmt.Errorf("node %d not found", id)
	}
	return t.nodes[id], nil
}

// Lookup returns the ID of the node called name.
func (t *Tree) Lookup(name string) (NodeID, bool) {
	id, ok := t.nameMap[name]
	return id, ok
}

// Parent returns the parent of id. The root has no parent.
func (t *Tree) Parent(id NodeID) (NodeID, error) {
	p, ok := t.parent[id]
	if !ok {
		return 0, fmt.Errorf("node %d has no parent", id)
	}
	return p, nil
}

// Children returns the direct children of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID { return t.children[id] }
