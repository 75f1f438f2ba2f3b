package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/go-gl/mathgl/mgl32"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex
	common.DirtyFlag

	pitch     float32 // radians, rotation about +X
	yaw       float32 // radians, rotation about +Y
	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
}

// Light defines the interface for the scene's directional light.
//
// A directional light has no position, only an orientation expressed as pitch and yaw Euler
// angles. The direction it travels is the rotated +Z axis. Every change to orientation, color
// or intensity raises the light's change flag so that accumulated samples lit by the old
// light can be discarded.
type Light interface {
	// Direction returns the normalized direction the light travels.
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Rotation returns the pitch and yaw of the light in radians.
	//
	// Returns:
	//   - pitch: rotation about +X
	//   - yaw: rotation about +Y
	Rotation() (pitch, yaw float32)

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// SetRotation sets the pitch and yaw in radians and recomputes the direction.
	//
	// Parameters:
	//   - pitch: rotation about +X
	//   - yaw: rotation about +Y
	SetRotation(pitch, yaw float32)

	// Rotate adds to the current pitch and yaw.
	//
	// Parameters:
	//   - dPitch: pitch delta in radians
	//   - dYaw: yaw delta in radians
	Rotate(dPitch, dYaw float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// GPU returns the light packed for upload.
	//
	// Returns:
	//   - GPUDirectionalLight: the packed light
	GPU() GPUDirectionalLight

	// Changed reports whether the light changed since the last ClearChanged.
	Changed() bool

	// ClearChanged lowers the change flag.
	ClearChanged()
}

var _ Light = &lightImpl{}

// NewLight creates a new directional light with sensible defaults and any provided options applied.
// The default orientation tilts 50 degrees below the horizon.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		pitch:     common.DegToRad(50),
		yaw:       common.DegToRad(-30),
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1.0,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.direction = common.ForwardFromEuler(l.pitch, l.yaw)
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Rotation() (pitch, yaw float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pitch, l.yaw
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) SetRotation(pitch, yaw float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setRotation(pitch, yaw)
}

func (l *lightImpl) Rotate(dPitch, dYaw float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setRotation(l.pitch+dPitch, l.yaw+dYaw)
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := mgl32.Vec3{r, g, b}
	if c == l.color {
		return
	}
	l.color = c
	l.MarkChanged()
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if intensity == l.intensity {
		return
	}
	l.intensity = intensity
	l.MarkChanged()
}

func (l *lightImpl) GPU() GPUDirectionalLight {
	l.mu.Lock()
	defer l.mu.Unlock()
	return GPUDirectionalLight{
		Direction: l.direction,
		Intensity: l.intensity,
		Color:     l.color,
	}
}

// setRotation stores the orientation and raises the change flag on any difference.
// Caller must hold the mutex.
func (l *lightImpl) setRotation(pitch, yaw float32) {
	if pitch == l.pitch && yaw == l.yaw {
		return
	}
	l.pitch = pitch
	l.yaw = yaw
	l.direction = common.ForwardFromEuler(pitch, yaw)
	l.MarkChanged()
}
