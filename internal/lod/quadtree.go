package lod

import "github.com/go-gl/mathgl/mgl32"

// SphereMapper warps a point on the unit cube surface onto the unit sphere.
type SphereMapper func(p mgl32.Vec3) mgl32.Vec3

// Node is one node of a per-face quadtree.
// A node owns either no children or exactly four. The parent pointer is a
// back-reference only; a subtree goes away when its parent drops it.
type Node struct {
	Code Code
	// Center is kept on the unit sphere so the tree stays valid when the
	// sphere radius changes between frames.
	Center mgl32.Vec3

	parent   *Node
	children *[4]*Node
}

// NewRoot creates the level 0 node of a face.
func NewRoot(face Face) *Node {
	return &Node{
		Code:   RootCode,
		Center: face.Center().Normalize(),
	}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.children == nil
}

// Parent returns nil for a face root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the four children, or nil for a leaf.
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	return n.children[:]
}

// Position returns the node centre on a sphere of the given radius.
func (n *Node) Position(radius float32) mgl32.Vec3 {
	return n.Center.Mul(radius)
}

// Split materializes the four children of a leaf. faceCenter selects the
// cube face the node lies on and mapper warps the cube point to the sphere.
func (n *Node) Split(faceCenter mgl32.Vec3, mapper SphereMapper) {
	if n.children != nil {
		panic("lod: split of a node that already has children")
	}

	var children [4]*Node
	for i, code := range n.Code.Children() {
		level, x, y := code.Decode()
		onCube := cellOnCube(faceCenter, level, x, y)
		children[i] = &Node{
			Code:   code,
			Center: mapper(onCube).Normalize(),
			parent: n,
		}
	}
	n.children = &children
}

// Merge drops the whole subtree below n and returns how many nodes it held.
func (n *Node) Merge() int {
	if n.children == nil {
		return 0
	}
	removed := n.Count() - 1
	n.children = nil
	return removed
}

// Walk visits n and its descendants depth first, children in quadrant order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	if n.children == nil {
		return
	}
	for _, child := range n.children {
		child.Walk(fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n, n included.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

// LeafCodes appends the codes of every leaf below n (n itself if it is a
// leaf) to dst.
func (n *Node) LeafCodes(dst []Code) []Code {
	n.Walk(func(node *Node) {
		if node.IsLeaf() {
			dst = append(dst, node.Code)
		}
	})
	return dst
}

// detached reports whether n was discarded by a merge somewhere above it.
func (n *Node) detached() bool {
	for a := n; a.parent != nil; a = a.parent {
		if a.parent.children == nil {
			return true
		}
	}
	return false
}
