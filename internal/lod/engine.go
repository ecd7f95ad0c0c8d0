package lod

import (
	"log"

	"planet-lod/internal/config"
	"planet-lod/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// RootNodeSize is the size proxy of a face root on the unit sphere:
// the arc atan(sqrt(2)) spanned from a face centre to its corner.
const RootNodeSize = 0.9553

// BufferUpdater receives the slot changes of a frame together with the
// packed layout of all faces (face-major, MaxNodes slots per face).
type BufferUpdater interface {
	UpdateLayout(changes []LayoutChange, layout []Code, radius float32)
}

// Engine keeps one quadtree and one buffer layout per cube face and adapts
// them to the camera every frame. It is not safe for concurrent use.
type Engine struct {
	roots   [NumFaces]*Node
	layouts [NumFaces]*BufferLayout
	mapper  SphereMapper
	updater BufferUpdater

	nodeCounts [NumFaces]int
	overflow   [NumFaces]int

	leaves  []Code
	changes []LayoutChange
	queue   []*Node
}

// NewEngine builds the six face roots. Both collaborators are required.
func NewEngine(mapper SphereMapper, updater BufferUpdater) *Engine {
	if mapper == nil {
		panic("lod: engine needs a sphere mapper")
	}
	if updater == nil {
		panic("lod: engine needs a buffer updater")
	}

	e := &Engine{
		mapper:  mapper,
		updater: updater,
		changes: make([]LayoutChange, 0, MaxNodes*NumFaces),
	}
	for _, face := range Faces() {
		e.roots[face] = NewRoot(face)
		e.layouts[face] = NewBufferLayout()
		e.nodeCounts[face] = 1
		instrumentNodeCount(face, 1)
	}
	return e
}

// CameraLocal converts a world-space camera position into the planet's
// local frame given the planet's model matrix.
func CameraLocal(cameraWorld mgl32.Vec3, planetModel mgl32.Mat4) mgl32.Vec3 {
	return mgl32.TransformCoordinate(cameraWorld, planetModel.Inv())
}

// Update restructures the trees for the camera (in planet-local space) and
// hands the resulting slot changes to the buffer updater. fov is accepted
// for callers that track it but does not influence the distance test.
func (e *Engine) Update(cameraPos mgl32.Vec3, fov float32, radius float32) {
	defer profiling.Track("lod.Update")()
	if radius <= 0 {
		panic("lod: sphere radius must be positive")
	}

	scale := config.GetLodDistanceScale()

	// A group merged here may be split again below in the same frame, in
	// which case its leaves and slots come out unchanged.
	e.mergePass(cameraPos, radius, scale)
	e.splitPass(cameraPos, radius, scale)

	e.changes = e.collectChanges(e.changes[:0])
	if len(e.changes) == 0 {
		return
	}

	instrumentSlotChanges(e.changes)
	instrumentBufferUpdate()
	e.updater.UpdateLayout(e.changes, e.PackedLayout(), radius)
}

func (e *Engine) mergePass(cameraPos mgl32.Vec3, radius, scale float32) {
	defer profiling.Track("lod.mergePass")()

	for _, face := range Faces() {
		root := e.roots[face]
		if root.IsLeaf() {
			continue
		}

		// The root is never merged, so the walk starts at its children.
		e.queue = append(e.queue[:0], root.Children()...)
		for len(e.queue) > 0 {
			node := e.queue[0]
			e.queue = e.queue[1:]

			// A sibling collapsed by an earlier node of this pass.
			if node.detached() {
				continue
			}

			// Any one child far enough away collapses its whole sibling group.
			size := nodeSize(node, radius)
			distance := cameraPos.Sub(node.Position(radius)).Len()
			if size*scale < distance {
				e.merge(face, node.Parent())
				continue
			}

			e.queue = append(e.queue, node.Children()...)
		}
	}
}

func (e *Engine) splitPass(cameraPos mgl32.Vec3, radius, scale float32) {
	defer profiling.Track("lod.splitPass")()

	maxLevel := uint32(config.GetMaxSplitLevel())
	for _, face := range Faces() {
		e.queue = append(e.queue[:0], e.roots[face])
		for len(e.queue) > 0 {
			node := e.queue[0]
			e.queue = e.queue[1:]

			if !node.IsLeaf() {
				e.queue = append(e.queue, node.Children()...)
				continue
			}
			if node.Code.Level() >= maxLevel {
				continue
			}

			size := nodeSize(node, radius)
			distance := cameraPos.Sub(node.Position(radius)).Len()
			if size*scale > distance {
				e.split(face, node)
			}
		}
	}
}

// nodeSize approximates the footprint of a node on the sphere by the
// distance between its centre and its parent's.
func nodeSize(node *Node, radius float32) float32 {
	if node.Parent() == nil {
		return RootNodeSize * radius
	}
	return node.Parent().Center.Sub(node.Center).Len() * radius
}

func (e *Engine) split(face Face, node *Node) {
	node.Split(face.Center(), e.mapper)
	e.nodeCounts[face] += 3
	instrumentSplit(face)
	instrumentNodeCount(face, e.nodeCounts[face])
}

func (e *Engine) merge(face Face, node *Node) {
	e.nodeCounts[face] -= node.Merge()
	instrumentMerge(face)
	instrumentNodeCount(face, e.nodeCounts[face])
}

func (e *Engine) collectChanges(changes []LayoutChange) []LayoutChange {
	defer profiling.Track("lod.collectChanges")()

	for _, face := range Faces() {
		e.leaves = e.roots[face].LeafCodes(e.leaves[:0])
		layout := e.layouts[face]
		changes = layout.Update(e.leaves, face, changes)

		if overflow := layout.Overflow(); overflow != e.overflow[face] {
			if overflow > 0 {
				log.Printf("lod: %s face has %d leaves without a buffer slot (capacity %d)", face, overflow, MaxNodes)
			} else {
				log.Printf("lod: %s face fits its buffer again", face)
			}
			e.overflow[face] = overflow
			instrumentOverflow(face, overflow)
		}
	}
	return changes
}

// NodeCount returns the tracked number of nodes across all faces.
func (e *Engine) NodeCount() int {
	total := 0
	for _, n := range e.nodeCounts {
		total += n
	}
	return total
}

// CountNodes recounts the nodes of every tree.
func (e *Engine) CountNodes() int {
	total := 0
	for _, root := range e.roots {
		total += root.Count()
	}
	return total
}

// Root returns the quadtree root of a face.
func (e *Engine) Root(face Face) *Node {
	return e.roots[face]
}

// LeafCodes returns the current leaf codes of a face.
func (e *Engine) LeafCodes(face Face) []Code {
	return e.roots[face].LeafCodes(nil)
}

// Layout returns a copy of a face's slot array.
func (e *Engine) Layout(face Face) []Code {
	return e.layouts[face].Slots()
}

// Overflow returns how many leaves of a face had no slot after the last
// update.
func (e *Engine) Overflow(face Face) int {
	return e.layouts[face].Overflow()
}

// PackedLayout returns every face's slots in buffer order, for a full
// re-upload after the GPU resources are recreated.
func (e *Engine) PackedLayout() []Code {
	out := make([]Code, 0, MaxNodes*NumFaces)
	for _, layout := range e.layouts {
		out = append(out, layout.slots[:]...)
	}
	return out
}
