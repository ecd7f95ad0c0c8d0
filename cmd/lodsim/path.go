package main

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraPath returns the camera position, in planet-local space, for a frame
// out of a run of frames.
type cameraPath func(frame, frames int) mgl32.Vec3

var pathNames = []string{"approach", "dive", "orbit"}

// newCameraPath builds a named path around a sphere of the given radius.
// Altitudes are measured from the surface above the front face.
func newCameraPath(name string, radius, from, to float32) (cameraPath, error) {
	if radius <= 0 {
		return nil, errors.New("radius must be positive").WithTag("radius", radius)
	}
	if from < 0 || to < 0 {
		return nil, errors.New("altitudes must not be negative").
			WithTag("from", from).
			WithTag("to", to)
	}

	above := func(altitude float32) mgl32.Vec3 {
		return mgl32.Vec3{0, 0, radius + altitude}
	}

	switch name {
	case "approach":
		return func(frame, frames int) mgl32.Vec3 {
			return above(lerp(from, to, progress(frame, frames)))
		}, nil

	case "dive":
		return func(frame, frames int) mgl32.Vec3 {
			t := progress(frame, frames) * 2
			if t > 1 {
				t = 2 - t
			}
			return above(lerp(from, to, t))
		}, nil

	case "orbit":
		return func(frame, frames int) mgl32.Vec3 {
			angle := 2 * math.Pi * float64(progress(frame, frames))
			d := radius + from
			return mgl32.Vec3{
				d * float32(math.Sin(angle)),
				0,
				d * float32(math.Cos(angle)),
			}
		}, nil
	}

	return nil, errors.New("unknown camera path").
		WithTag("path", name).
		WithTag("known", pathNames)
}

func progress(frame, frames int) float32 {
	if frames <= 1 {
		return 1
	}
	return float32(frame) / float32(frames-1)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
