package lod

// MaxNodes is the slot capacity of one face: three new leaves per level of
// a tree refined along a single path, plus the root slot. Wider trees do
// not get a slot for every leaf.
const MaxNodes = 3*15 + 1

// LayoutChange describes one slot that changed this frame. It is uploaded
// verbatim to the GPU, so the field sizes are fixed.
type LayoutChange struct {
	// NewCode is the node now held by the slot, or 0 if the slot was freed.
	NewCode Code
	Offset  uint32
	Face    int32
}

// Freed reports whether the change releases its slot.
func (c LayoutChange) Freed() bool {
	return c.NewCode == 0
}

// BufferLayout maps buffer slots of one face to the node codes resident in
// them. Slot 0 belongs to the face root; a value of 0 marks a free slot.
type BufferLayout struct {
	slots     [MaxNodes]Code
	firstFree int
	overflow  int
}

// NewBufferLayout returns a layout holding only the face root.
func NewBufferLayout() *BufferLayout {
	l := &BufferLayout{firstFree: 1}
	l.slots[0] = RootCode
	return l
}

// Update brings the layout in line with desired and appends the slot
// changes to changes. Stale slots are freed first so the allocations of the
// same call can reuse them, lowest index first. Codes that find no free slot
// are left out until a later call has room for them.
func (l *BufferLayout) Update(desired []Code, face Face, changes []LayoutChange) []LayoutChange {
	want := make(map[Code]struct{}, len(desired))
	for _, code := range desired {
		want[code] = struct{}{}
	}

	resident := make(map[Code]struct{}, MaxNodes)
	for i, code := range l.slots {
		if code == 0 {
			continue
		}
		if _, ok := want[code]; ok {
			resident[code] = struct{}{}
			continue
		}

		l.slots[i] = 0
		changes = append(changes, LayoutChange{
			NewCode: 0,
			Offset:  uint32(i),
			Face:    int32(face),
		})
		if i < l.firstFree {
			l.firstFree = i
		}
	}

	l.overflow = 0
	for _, code := range desired {
		if code == RootCode {
			continue
		}
		if _, ok := resident[code]; ok {
			continue
		}
		if l.firstFree >= len(l.slots) {
			l.overflow++
			continue
		}

		l.slots[l.firstFree] = code
		resident[code] = struct{}{}
		changes = append(changes, LayoutChange{
			NewCode: code,
			Offset:  uint32(l.firstFree),
			Face:    int32(face),
		})

		for l.firstFree < len(l.slots) && l.slots[l.firstFree] != 0 {
			l.firstFree++
		}
	}

	return changes
}

// RootActive reports whether slot 0 of a face's slot array stands for a
// live root. Once the root has children every leaf below it holds a slot of
// its own and slot 0 no longer names a node.
func RootActive(slots []Code) bool {
	for _, code := range slots[min(1, len(slots)):] {
		if code != 0 {
			return false
		}
	}
	return true
}

// Slots returns a copy of the slot array.
func (l *BufferLayout) Slots() []Code {
	out := make([]Code, len(l.slots))
	copy(out, l.slots[:])
	return out
}

// Slot returns the code held at index i (0 if free).
func (l *BufferLayout) Slot(i int) Code {
	return l.slots[i]
}

// Resident returns the number of occupied slots, the root sentinel excluded.
func (l *BufferLayout) Resident() int {
	n := 0
	for _, code := range l.slots {
		if code != 0 {
			n++
		}
	}
	return n
}

// Overflow returns how many codes could not get a slot during the last
// Update.
func (l *BufferLayout) Overflow() int {
	return l.overflow
}

// FirstFree returns the index the next allocation will use.
func (l *BufferLayout) FirstFree() int {
	return l.firstFree
}
