package lod

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Face identifies one of the six cube faces warped onto the sphere.
type Face int

// Buffer order. All per-face GPU data is laid out face-major in this order.
const (
	FaceFront Face = iota
	FaceBack
	FaceTop
	FaceBottom
	FaceRight
	FaceLeft

	NumFaces = 6
)

var faceCenters = [NumFaces]mgl32.Vec3{
	{0, 0, 1},
	{0, 0, -1},
	{0, 1, 0},
	{0, -1, 0},
	{1, 0, 0},
	{-1, 0, 0},
}

var faceNames = [NumFaces]string{"front", "back", "top", "bottom", "right", "left"}

// Center returns the centre of the face on the unit cube.
func (f Face) Center() mgl32.Vec3 {
	return faceCenters[f]
}

func (f Face) String() string {
	if f < 0 || f >= NumFaces {
		return fmt.Sprintf("Face(%d)", int(f))
	}
	return faceNames[f]
}

// Faces lists all faces in buffer order.
func Faces() [NumFaces]Face {
	return [NumFaces]Face{FaceFront, FaceBack, FaceTop, FaceBottom, FaceRight, FaceLeft}
}

// cellOnCube maps a grid cell centre to a point on the unit cube face
// identified by faceCenter.
func cellOnCube(faceCenter mgl32.Vec3, level, x, y uint32) mgl32.Vec3 {
	cells := float32(uint32(1) << level)
	u := -1 + 2*(float32(x)+0.5)/cells
	v := -1 + 2*(float32(y)+0.5)/cells

	switch {
	case faceCenter.X() != 0:
		return mgl32.Vec3{faceCenter.X(), u, v}
	case faceCenter.Y() != 0:
		return mgl32.Vec3{u, faceCenter.Y(), v}
	default:
		return mgl32.Vec3{u, v, faceCenter.Z()}
	}
}
