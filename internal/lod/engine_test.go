package lod_test

import (
	"math/rand"
	"testing"

	"planet-lod/internal/config"
	"planet-lod/internal/lod"
	"planet-lod/internal/spheremap"

	"github.com/go-gl/mathgl/mgl32"
)

type recordingUpdater struct {
	batches [][]lod.LayoutChange
	layouts [][]lod.Code
	radius  float32
}

func (r *recordingUpdater) UpdateLayout(changes []lod.LayoutChange, layout []lod.Code, radius float32) {
	r.batches = append(r.batches, append([]lod.LayoutChange(nil), changes...))
	r.layouts = append(r.layouts, layout)
	r.radius = radius
}

func (r *recordingUpdater) last() []lod.LayoutChange {
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

const fov = 60

// splitThreshold is the camera distance from a face centre below which the
// face root splits.
func splitThreshold(radius float32) float32 {
	return lod.RootNodeSize * radius * config.GetLodDistanceScale()
}

func cameraAbove(face lod.Face, radius, distance float32) mgl32.Vec3 {
	return face.Center().Mul(radius + distance)
}

func newEngine() (*lod.Engine, *recordingUpdater) {
	u := &recordingUpdater{}
	return lod.NewEngine(spheremap.MapPointToSphere, u), u
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	for name, fn := range map[string]func(){
		"mapper":  func() { lod.NewEngine(nil, &recordingUpdater{}) },
		"updater": func() { lod.NewEngine(spheremap.MapPointToSphere, nil) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic without %s", name)
				}
			}()
			fn()
		}()
	}
}

func TestUpdateRejectsNonPositiveRadius(t *testing.T) {
	e, _ := newEngine()
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for zero radius")
		}
	}()
	e.Update(mgl32.Vec3{0, 0, 100}, fov, 0)
}

func TestFarCameraDoesNothing(t *testing.T) {
	e, u := newEngine()
	for i := 0; i < 3; i++ {
		e.Update(mgl32.Vec3{0, 0, 10000}, fov, 1)
	}
	if len(u.batches) != 0 {
		t.Errorf("Expected no buffer updates, got %d", len(u.batches))
	}
	if e.NodeCount() != 6 || e.CountNodes() != 6 {
		t.Errorf("Expected 6 nodes, got %d tracked / %d counted", e.NodeCount(), e.CountNodes())
	}
}

func TestApproachSplitsOneFace(t *testing.T) {
	const radius = 1
	e, u := newEngine()
	cam := cameraAbove(lod.FaceFront, radius, splitThreshold(radius)-0.01)

	e.Update(cam, fov, radius)

	if e.NodeCount() != 9 {
		t.Errorf("Expected node count 9, got %d", e.NodeCount())
	}
	if len(u.batches) != 1 {
		t.Fatalf("Expected one buffer update, got %d", len(u.batches))
	}
	changes := u.last()
	if len(changes) != 4 {
		t.Fatalf("Expected 4 changes, got %v", changes)
	}
	children := lod.RootCode.Children()
	for i, c := range changes {
		if c.Face != int32(lod.FaceFront) || c.Freed() || c.Offset != uint32(i+1) || c.NewCode != children[i] {
			t.Errorf("change %d = %+v", i, c)
		}
	}
	if got := e.Layout(lod.FaceFront)[0]; got != lod.RootCode {
		t.Errorf("slot 0 changed to %v", got)
	}
	if len(u.layouts[0]) != lod.MaxNodes*lod.NumFaces {
		t.Errorf("Expected packed layout of %d, got %d", lod.MaxNodes*lod.NumFaces, len(u.layouts[0]))
	}
	if u.radius != radius {
		t.Errorf("Expected radius passed through, got %v", u.radius)
	}

	// Holding still converges: no further changes.
	e.Update(cam, fov, radius)
	e.Update(cam, fov, radius)
	if len(u.batches) != 1 {
		t.Errorf("Expected no updates while the camera holds still, got %d", len(u.batches)-1)
	}
	if e.NodeCount() != 9 {
		t.Errorf("Expected node count to stay 9, got %d", e.NodeCount())
	}
}

func TestJustOutsideThresholdDoesNotSplit(t *testing.T) {
	const radius = 2
	e, u := newEngine()
	e.Update(cameraAbove(lod.FaceTop, radius, splitThreshold(radius)+0.05), fov, radius)
	if len(u.batches) != 0 || e.NodeCount() != 6 {
		t.Errorf("Expected no split, got %d updates and %d nodes", len(u.batches), e.NodeCount())
	}
}

func TestRetreatMergesAndSlotsAreReused(t *testing.T) {
	const radius = 1
	e, u := newEngine()
	near := cameraAbove(lod.FaceFront, radius, splitThreshold(radius)-0.01)
	e.Update(near, fov, radius)

	e.Update(mgl32.Vec3{0, 0, 10000}, fov, radius)
	if e.NodeCount() != 6 {
		t.Errorf("Expected node count 6 after merge, got %d", e.NodeCount())
	}
	if !lod.RootActive(e.Layout(lod.FaceFront)) {
		t.Errorf("Expected the front root to be active again")
	}
	changes := u.last()
	if len(changes) != 4 {
		t.Fatalf("Expected 4 frees, got %v", changes)
	}
	for i, c := range changes {
		if !c.Freed() || c.Offset != uint32(i+1) || c.Face != int32(lod.FaceFront) {
			t.Errorf("change %d = %+v", i, c)
		}
	}

	// Another face now splits into its own low slots.
	e.Update(cameraAbove(lod.FaceRight, radius, splitThreshold(radius)-0.01), fov, radius)
	changes = u.last()
	if len(changes) != 4 {
		t.Fatalf("Expected 4 allocations, got %v", changes)
	}
	if changes[0].Face != int32(lod.FaceRight) || changes[0].Offset != 1 {
		t.Errorf("Expected first allocation in slot 1 of the right face, got %+v", changes[0])
	}

	// And the front face gets slot 1 back when it splits again.
	e.Update(near, fov, radius)
	for _, c := range u.last() {
		if c.Face == int32(lod.FaceFront) && !c.Freed() && c.NewCode == lod.RootCode.Children()[0] && c.Offset != 1 {
			t.Errorf("Expected front quadrant 0 back in slot 1, got %+v", c)
		}
	}
}

func TestFarSiblingCollapsesWholeGroup(t *testing.T) {
	const radius = 1
	scale := config.GetLodDistanceScale()
	e, u := newEngine()

	e.Update(cameraAbove(lod.FaceFront, radius, 1), fov, radius)
	children := e.Root(lod.FaceFront).Children()
	if len(children) != 4 {
		t.Fatalf("Expected the front root to split, got %d children", len(children))
	}

	// Hover off-centre above quadrant 3, close enough that it would split
	// on its own but far enough from some sibling for that one to merge.
	near := children[3]
	nearSize := near.Parent().Center.Sub(near.Center).Len() * radius
	cam := near.Position(radius).Add(near.Center.Mul(0.95 * nearSize * scale))

	far := 0
	for i, child := range children {
		size := child.Parent().Center.Sub(child.Center).Len() * radius
		distance := cam.Sub(child.Position(radius)).Len()
		if i == 3 && size*scale <= distance {
			t.Fatalf("quadrant 3 at distance %v is outside its own size %v", distance, size*scale)
		}
		if i != 3 && size*scale < distance {
			far++
		}
	}
	if far == 0 {
		t.Fatalf("Expected at least one sibling beyond its merge distance")
	}

	for i := 0; i < 20; i++ {
		e.Update(cam, fov, radius)
	}

	// The group is collapsed every frame before quadrant 3 gets to split,
	// and the root splits again right after, so the face stays at level 1.
	want := lod.RootCode.Children()
	got := e.LeafCodes(lod.FaceFront)
	if len(got) != len(want) {
		t.Fatalf("Expected front leaves %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("leaf %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if lod.RootActive(e.Layout(lod.FaceFront)) {
		t.Errorf("Expected slot 0 of the split front face to be inactive")
	}
	if e.NodeCount() != e.CountNodes() {
		t.Errorf("tracked %d nodes, counted %d", e.NodeCount(), e.CountNodes())
	}

	before := len(u.batches)
	for i := 0; i < 3; i++ {
		e.Update(cam, fov, radius)
	}
	if len(u.batches) != before {
		t.Errorf("Expected no changes while the camera holds still, got %v", u.batches[before:])
	}
}

func TestSplitsOneLevelPerFrame(t *testing.T) {
	const radius = 1
	e, _ := newEngine()
	cam := cameraAbove(lod.FaceFront, radius, 0.01)

	e.Update(cam, fov, radius)
	for _, code := range e.LeafCodes(lod.FaceFront) {
		if code.Level() != 1 {
			t.Fatalf("Expected only level 1 leaves after one frame, got %v", code)
		}
	}
	e.Update(cam, fov, radius)
	deepest := uint32(0)
	for _, code := range e.LeafCodes(lod.FaceFront) {
		deepest = max(deepest, code.Level())
	}
	if deepest != 2 {
		t.Errorf("Expected depth 2 after two frames, got %d", deepest)
	}
}

func TestDeepZoomOverflowsSoftly(t *testing.T) {
	const radius = 1
	e, _ := newEngine()
	cam := cameraAbove(lod.FaceFront, radius, 0.001)

	for i := 0; i < 5; i++ {
		e.Update(cam, fov, radius)
	}
	if e.Overflow(lod.FaceFront) == 0 {
		t.Fatalf("Expected the front face to run out of slots")
	}
	layout := e.Layout(lod.FaceFront)
	resident := 0
	for _, code := range layout[1:] {
		if code != 0 {
			resident++
		}
	}
	if resident != lod.MaxNodes-1 {
		t.Errorf("Expected a full layout, got %d resident", resident)
	}
	if e.NodeCount() != e.CountNodes() {
		t.Errorf("tracked %d nodes, counted %d", e.NodeCount(), e.CountNodes())
	}

	// Leaving collapses every face in one frame, however deep.
	e.Update(mgl32.Vec3{0, 0, 1e6}, fov, radius)
	if e.NodeCount() != 6 || e.CountNodes() != 6 {
		t.Errorf("Expected 6 nodes after leaving, got %d tracked / %d counted", e.NodeCount(), e.CountNodes())
	}
	if e.Overflow(lod.FaceFront) != 0 {
		t.Errorf("Expected overflow cleared, got %d", e.Overflow(lod.FaceFront))
	}
	for i, code := range e.Layout(lod.FaceFront) {
		if code != 0 {
			t.Errorf("slot %d still holds %v", i, code)
		}
	}
}

func TestMaxSplitLevelIsHonoured(t *testing.T) {
	defer config.SetMaxSplitLevel(config.GetMaxSplitLevel())
	config.SetMaxSplitLevel(2)

	const radius = 1
	e, _ := newEngine()
	cam := cameraAbove(lod.FaceFront, radius, 0.001)
	for i := 0; i < 6; i++ {
		e.Update(cam, fov, radius)
	}
	for _, face := range lod.Faces() {
		for _, code := range e.LeafCodes(face) {
			if code.Level() > 2 {
				t.Fatalf("%s leaf %v deeper than the configured limit", face, code)
			}
		}
	}
}

func TestRandomWalkKeepsTreeAndLayoutConsistent(t *testing.T) {
	const radius = 10
	e, u := newEngine()
	r := rand.New(rand.NewSource(99))

	// Replays every batch onto a shadow copy of the slots.
	shadow := make([]lod.Code, lod.MaxNodes*lod.NumFaces)

	for frame := 0; frame < 200; frame++ {
		dir := mgl32.Vec3{r.Float32()*2 - 1, r.Float32()*2 - 1, r.Float32()*2 - 1}
		if dir.Len() < 1e-3 {
			continue
		}
		altitude := r.Float32() * 200
		cam := dir.Normalize().Mul(radius + altitude)

		before := len(u.batches)
		e.Update(cam, fov, radius)

		if e.NodeCount() != e.CountNodes() {
			t.Fatalf("frame %d: tracked %d nodes, counted %d", frame, e.NodeCount(), e.CountNodes())
		}
		if len(u.batches) > before {
			for _, c := range u.last() {
				shadow[int(c.Face)*lod.MaxNodes+int(c.Offset)] = c.NewCode
			}
		}

		packed := e.PackedLayout()
		for i := range packed {
			if packed[i] != shadow[i] {
				t.Fatalf("frame %d: slot %d is %v but replayed changes give %v", frame, i, packed[i], shadow[i])
			}
		}

		for _, face := range lod.Faces() {
			internal := 0
			e.Root(face).Walk(func(n *lod.Node) {
				if !n.IsLeaf() {
					internal++
				}
			})
			if got := e.Root(face).Count(); got != 1+4*internal {
				t.Fatalf("frame %d: %s has %d nodes for %d internal", frame, face, got, internal)
			}

			if e.Overflow(face) > 0 {
				continue
			}
			leaves := make(map[lod.Code]bool)
			for _, code := range e.LeafCodes(face) {
				if code != lod.RootCode {
					leaves[code] = true
				}
			}
			held := 0
			for _, code := range e.Layout(face) {
				if code == 0 {
					continue
				}
				held++
				if !leaves[code] {
					t.Fatalf("frame %d: %s slot holds non-leaf %v", frame, face, code)
				}
			}
			if held != len(leaves) {
				t.Fatalf("frame %d: %s holds %d codes for %d leaves", frame, face, held, len(leaves))
			}
		}
	}
}

func TestCameraLocal(t *testing.T) {
	model := mgl32.Translate3D(100, 0, -50).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(90)))
	local := mgl32.Vec3{0, 0, 20}
	world := mgl32.TransformCoordinate(local, model)

	if got := lod.CameraLocal(world, model); !got.ApproxEqualThreshold(local, 1e-3) {
		t.Errorf("Expected %v, got %v", local, got)
	}
}

func BenchmarkUpdateStill(b *testing.B) {
	e := lod.NewEngine(spheremap.MapPointToSphere, &recordingUpdater{})
	cam := cameraAbove(lod.FaceFront, 1, 0.5)
	for i := 0; i < 10; i++ {
		e.Update(cam, fov, 1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Update(cam, fov, 1)
	}
}
