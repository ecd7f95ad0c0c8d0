package lod

import "fmt"

// Code is the packed address of a quadtree node within one face.
// Bits 0-3 hold the level, x is dilated into the even bits from bit 4 and
// y into the odd bits from bit 5.
type Code uint32

const (
	// RootCode addresses the level 0 node covering a whole face.
	RootCode Code = 0

	// MaxLevel is the deepest level whose coordinates fit in a Code
	// (14 bits per axis).
	MaxLevel = 14

	levelBits = 4
	levelMask = 0xf
	coordMask = 0x05555555
)

func dilate(v uint32) uint32 {
	v &= 0x0000ffff
	v = (v | (v << 8)) & 0x00ff00ff
	v = (v | (v << 4)) & 0x0f0f0f0f
	v = (v | (v << 2)) & 0x33333333
	v = (v | (v << 1)) & 0x55555555
	return v
}

func undilate(v uint32) uint32 {
	v = (v | (v >> 1)) & 0x33333333
	v = (v | (v >> 2)) & 0x0f0f0f0f
	v = (v | (v >> 4)) & 0x00ff00ff
	v = (v | (v >> 8)) & 0x0000ffff
	return v
}

// Encode packs a node's level and grid coordinates.
// It panics if level exceeds MaxLevel or a coordinate lies outside the
// 2^level grid.
func Encode(level, x, y uint32) Code {
	if level > MaxLevel {
		panic(fmt.Sprintf("lod: level %d exceeds supported depth %d", level, MaxLevel))
	}
	if side := uint32(1) << level; x >= side || y >= side {
		panic(fmt.Sprintf("lod: coordinate (%d,%d) outside level %d grid", x, y, level))
	}
	return Code(level | dilate(x)<<levelBits | dilate(y)<<(levelBits+1))
}

// Level returns the depth of the node, 0 being the face root.
func (c Code) Level() uint32 {
	return uint32(c) & levelMask
}

// Decode unpacks the level and grid coordinates.
func (c Code) Decode() (level, x, y uint32) {
	level = uint32(c) & levelMask
	x = undilate((uint32(c) >> levelBits) & coordMask)
	y = undilate((uint32(c) >> (levelBits + 1)) & coordMask)
	return level, x, y
}

// Children returns the codes of the four children in quadrant order:
// (2x,2y), (2x+1,2y), (2x,2y+1), (2x+1,2y+1).
func (c Code) Children() [4]Code {
	level := c.Level()
	if level >= MaxLevel {
		panic(fmt.Sprintf("lod: level %d exceeds supported depth %d", level+1, MaxLevel))
	}

	base := Code(level+1) | (c&^levelMask)<<2
	return [4]Code{
		base,
		base | 0x10,
		base | 0x20,
		base | 0x30,
	}
}

func (c Code) String() string {
	level, x, y := c.Decode()
	return fmt.Sprintf("L%d(%d,%d)", level, x, y)
}
