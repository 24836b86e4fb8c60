package catalog

import (
	"sort"
	"strings"
)

// Node is an entry in the directory view. Directories have children;
// leaves reference an item by id.
type Node struct {
	Name     string
	ItemID   string
	Children []*Node

	dirs map[string]*Node
}

// IsDir reports whether the node is a directory
func (n *Node) IsDir() bool {
	return n.ItemID == ""
}

// Child returns the subdirectory with the given name
func (n *Node) Child(name string) (*Node, bool) {
	child, ok := n.dirs[name]
	return child, ok
}

// Navigate walks a slash separated path from this node. Empty segments are
// ignored, so "", "/" and "a//b/" are all valid.
func (n *Node) Navigate(path string) (*Node, bool) {
	node := n
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		child, ok := node.Child(part)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// ItemIDs returns every item id at or below this node, depth first
func (n *Node) ItemIDs() []string {
	var ids []string
	var walk func(*Node)
	walk = func(node *Node) {
		if !node.IsDir() {
			ids = append(ids, node.ItemID)
			return
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(n)
	return ids
}

func (n *Node) dir(name string) *Node {
	if child, ok := n.dirs[name]; ok {
		return child
	}
	child := &Node{Name: name, dirs: make(map[string]*Node)}
	n.dirs[name] = child
	n.Children = append(n.Children, child)
	return child
}

// BuildTree groups items into artist/album/track. Items without artists are
// placed at the root and items without an album directly under each artist.
func BuildTree(items []*Item) *Node {
	root := &Node{dirs: make(map[string]*Node)}
	lookup := make(map[string]*Item, len(items))

	for _, it := range items {
		lookup[it.ID] = it
		leaf := &Node{Name: it.displayName(), ItemID: it.ID}

		if len(it.Artists) == 0 {
			root.Children = append(root.Children, leaf)
			continue
		}

		for _, artist := range it.Artists {
			parent := root.dir(sanitize(artist))
			if it.Album != "" {
				parent = parent.dir(sanitize(it.Album))
			}
			parent.Children = append(parent.Children, leaf)
		}
	}

	sortTree(root, lookup)
	return root
}

// sortTree orders directories by name ahead of tracks ordered by disc,
// track number and name
func sortTree(n *Node, lookup map[string]*Item) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		if a.IsDir() {
			return a.Name < b.Name
		}

		ia, ib := lookup[a.ItemID], lookup[b.ItemID]
		if da, db := number(ia.ParentIndexNumber), number(ib.ParentIndexNumber); da != db {
			return da < db
		}
		if ta, tb := number(ia.IndexNumber), number(ib.IndexNumber); ta != tb {
			return ta < tb
		}
		return a.Name < b.Name
	})

	for _, child := range n.Children {
		if child.IsDir() {
			sortTree(child, lookup)
		}
	}
}

func number(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
