package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * (math.Pi / 180.0)
}

// OrbitPosition returns the point at the given spherical coordinates around target.
// Azimuth rotates around +Y, elevation tilts away from the XZ plane.
//
// Parameters:
//   - target: the pivot point
//   - radius: distance from the pivot
//   - azimuth: horizontal angle in radians
//   - elevation: vertical angle in radians
//
// Returns:
//   - mgl32.Vec3: the world-space position
func OrbitPosition(target mgl32.Vec3, radius, azimuth, elevation float32) mgl32.Vec3 {
	ce := float32(math.Cos(float64(elevation)))
	return mgl32.Vec3{
		target.X() + radius*ce*float32(math.Sin(float64(azimuth))),
		target.Y() + radius*float32(math.Sin(float64(elevation))),
		target.Z() + radius*ce*float32(math.Cos(float64(azimuth))),
	}
}

// ForwardFromEuler returns the unit forward vector (+Z rotated) for a pitch/yaw pair in radians.
// Rotation order is yaw around +Y after pitch around +X, matching a Y-up engine transform.
//
// Returns:
//   - mgl32.Vec3: the normalized forward direction
func ForwardFromEuler(pitch, yaw float32) mgl32.Vec3 {
	rot := mgl32.HomogRotate3DY(yaw).Mul4(mgl32.HomogRotate3DX(pitch))
	return rot.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3().Normalize()
}

// CameraToWorld builds the camera-to-world matrix for an eye looking at center.
// It is the inverse of the view matrix produced by mgl32.LookAtV.
//
// Returns:
//   - mgl32.Mat4: camera space to world space transform
func CameraToWorld(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, center, up).Inv()
}
