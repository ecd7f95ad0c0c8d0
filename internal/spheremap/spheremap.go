// Package spheremap warps points on the surface of the unit cube onto the
// unit sphere.
package spheremap

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MapPointToSphere maps a point on the unit cube ([-1,1]^3 surface) to the
// unit sphere. Compared with plain normalisation it spreads cells far more
// evenly, so quadtree cells near face corners keep a similar area to those
// at the face centre.
func MapPointToSphere(p mgl32.Vec3) mgl32.Vec3 {
	x2 := float64(p.X() * p.X())
	y2 := float64(p.Y() * p.Y())
	z2 := float64(p.Z() * p.Z())

	return mgl32.Vec3{
		p.X() * float32(math.Sqrt(1-y2/2-z2/2+y2*z2/3)),
		p.Y() * float32(math.Sqrt(1-z2/2-x2/2+z2*x2/3)),
		p.Z() * float32(math.Sqrt(1-x2/2-y2/2+x2*y2/3)),
	}
}

// Normalize projects a cube point radially onto the unit sphere.
func Normalize(p mgl32.Vec3) mgl32.Vec3 {
	return p.Normalize()
}
