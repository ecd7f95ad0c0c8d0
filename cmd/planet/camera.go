package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	minAltitude = 1e-3
	maxPitch    = 89
	zoomStep    = 0.9
)

// orbitCamera circles the planet origin and looks at it. Altitude is measured
// from the surface, so zooming slows down as the camera gets close.
type orbitCamera struct {
	Yaw      float32 // degrees
	Pitch    float32 // degrees
	Altitude float32
	Radius   float32
	FOV      float32 // degrees
}

// Position returns the camera position in world space.
func (c *orbitCamera) Position() mgl32.Vec3 {
	yaw := mgl32.DegToRad(c.Yaw)
	pitch := mgl32.DegToRad(c.Pitch)
	d := c.Radius + c.Altitude
	cosPitch := float32(math.Cos(float64(pitch)))
	return mgl32.Vec3{
		d * cosPitch * float32(math.Sin(float64(yaw))),
		d * float32(math.Sin(float64(pitch))),
		d * cosPitch * float32(math.Cos(float64(yaw))),
	}
}

// Zoom moves the camera towards (positive steps) or away from the surface.
func (c *orbitCamera) Zoom(steps float64) {
	c.Altitude *= float32(math.Pow(zoomStep, steps))
	c.Altitude = mgl32.Clamp(c.Altitude, minAltitude, c.Radius*20)
}

// Rotate orbits the camera. Pitch stops short of the poles.
func (c *orbitCamera) Rotate(dyaw, dpitch float32) {
	c.Yaw = float32(math.Mod(float64(c.Yaw+dyaw), 360))
	c.Pitch = mgl32.Clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

func (c *orbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// Projection keeps the near plane proportional to the altitude so depth
// precision follows the camera down to the surface.
func (c *orbitCamera) Projection(aspect float32) mgl32.Mat4 {
	near := max(c.Altitude*0.1, minAltitude)
	far := (c.Radius + c.Altitude) * 2
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, near, far)
}
