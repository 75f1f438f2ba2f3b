// Package input maps keyboard state onto the path tracer's controls: the scene seed, the camera
// field of view and orbit, the directional light and snapshot requests.
package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
)

// Actions are the one-shot requests raised by a tick's input.
type Actions struct {
	// Snapshot is set when F12 was pressed.
	Snapshot bool
}

type inputImpl struct {
	mu *sync.Mutex

	camera camera.Camera
	light  light.Light

	held    map[uint32]bool
	pressed map[uint32]bool
	scroll  float32

	seed      int64
	fovStep   float32
	lightStep float32
	zoomStep  float32
}

// Input accumulates key events between ticks and applies them once per tick.
//
// Seed and field of view keys step once per press; while Shift is held they step every tick
// the key is down. Orbit, zoom and light keys act every tick they are held.
type Input interface {
	// KeyDown records a key press. Auto-repeat events for a held key are ignored.
	//
	// Parameters:
	//   - keyCode: the key code
	KeyDown(keyCode uint32)

	// KeyUp records a key release.
	//
	// Parameters:
	//   - keyCode: the key code
	KeyUp(keyCode uint32)

	// Scroll records a mouse wheel delta, applied as camera zoom.
	//
	// Parameters:
	//   - delta: the vertical scroll delta
	Scroll(delta float32)

	// Update applies the recorded input to the seed, camera and light, then clears the per-tick
	// press edges and scroll.
	//
	// Returns:
	//   - Actions: the one-shot requests of this tick
	Update() Actions

	// Seed returns the current scene seed.
	Seed() int64

	// SetSeed replaces the scene seed.
	SetSeed(seed int64)
}

var _ Input = &inputImpl{}

// NewInput creates an Input bound to a camera and a light. Either may be nil, in which case the
// keys that drive it are ignored.
//
// Parameters:
//   - cam: the camera driven by W/S, the arrows, Q/E and scroll
//   - l: the light driven by J/L/I/K
//   - options: functional options
//
// Returns:
//   - Input: the input state
func NewInput(cam camera.Camera, l light.Light, options ...InputBuilderOption) Input {
	in := &inputImpl{
		mu:        &sync.Mutex{},
		camera:    cam,
		light:     l,
		held:      make(map[uint32]bool),
		pressed:   make(map[uint32]bool),
		fovStep:   1,
		lightStep: common.DegToRad(2),
		zoomStep:  1,
	}
	for _, opt := range options {
		opt(in)
	}
	return in
}

func (in *inputImpl) KeyDown(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.held[keyCode] {
		return
	}
	in.held[keyCode] = true
	in.pressed[keyCode] = true
}

func (in *inputImpl) KeyUp(keyCode uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.held, keyCode)
}

func (in *inputImpl) Scroll(delta float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scroll += delta
}

func (in *inputImpl) Update() Actions {
	in.mu.Lock()
	defer in.mu.Unlock()

	shift := in.held[common.KeyLeftShift] || in.held[common.KeyRightShift]
	// a press counts once, a shifted hold counts every tick
	active := func(key uint32) bool {
		if shift {
			return in.held[key] || in.pressed[key]
		}
		return in.pressed[key]
	}

	switch {
	case active(common.KeyD):
		in.seed++
	case active(common.KeyA):
		in.seed--
	}

	if in.camera != nil {
		switch {
		case active(common.KeyW):
			in.camera.AdjustFov(-in.fovStep)
		case active(common.KeyS):
			in.camera.AdjustFov(in.fovStep)
		}
		in.applyOrbit()
	}

	if in.light != nil {
		var dPitch, dYaw float32
		if in.held[common.KeyJ] {
			dYaw -= in.lightStep
		}
		if in.held[common.KeyL] {
			dYaw += in.lightStep
		}
		if in.held[common.KeyI] {
			dPitch -= in.lightStep
		}
		if in.held[common.KeyK] {
			dPitch += in.lightStep
		}
		if dPitch != 0 || dYaw != 0 {
			in.light.Rotate(dPitch, dYaw)
		}
	}

	actions := Actions{Snapshot: in.pressed[common.KeyF12]}
	clear(in.pressed)
	in.scroll = 0
	return actions
}

// applyOrbit moves the camera controller. Caller holds mu.
func (in *inputImpl) applyOrbit() {
	ctrl := in.camera.Controller()
	if ctrl == nil {
		return
	}
	if in.held[common.KeyLeft] {
		ctrl.OrbitLeft()
	}
	if in.held[common.KeyRight] {
		ctrl.OrbitRight()
	}
	if in.held[common.KeyUp] {
		ctrl.OrbitUp()
	}
	if in.held[common.KeyDown] {
		ctrl.OrbitDown()
	}

	zoom := in.scroll
	if in.held[common.KeyQ] {
		zoom += in.zoomStep
	}
	if in.held[common.KeyE] {
		zoom -= in.zoomStep
	}
	if zoom != 0 {
		ctrl.Zoom(zoom)
	}
}

func (in *inputImpl) Seed() int64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.seed
}

func (in *inputImpl) SetSeed(seed int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.seed = seed
}
