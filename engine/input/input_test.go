package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/camera"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/light"
)

func newTestInput() (Input, camera.Camera, light.Light) {
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(20))))
	l := light.NewLight()
	cam.ClearChanged()
	l.ClearChanged()
	return NewInput(cam, l, WithSeed(10)), cam, l
}

func TestSeedStepsOncePerPress(t *testing.T) {
	in, _, _ := newTestInput()

	in.KeyDown(common.KeyD)
	in.Update()
	// auto-repeat and further ticks while held do nothing without shift
	in.KeyDown(common.KeyD)
	in.Update()
	in.Update()
	if got := in.Seed(); got != 11 {
		t.Fatalf("seed = %d, want 11", got)
	}

	in.KeyUp(common.KeyD)
	in.KeyDown(common.KeyA)
	in.Update()
	if got := in.Seed(); got != 10 {
		t.Fatalf("seed = %d, want 10", got)
	}
}

func TestShiftHoldStepsEveryTick(t *testing.T) {
	in, _, _ := newTestInput()

	in.KeyDown(common.KeyLeftShift)
	in.KeyDown(common.KeyD)
	for i := 0; i < 5; i++ {
		in.Update()
	}
	if got := in.Seed(); got != 15 {
		t.Fatalf("seed = %d, want 15", got)
	}
}

func TestSeedIncrementWinsOverDecrement(t *testing.T) {
	in, _, _ := newTestInput()
	in.KeyDown(common.KeyA)
	in.KeyDown(common.KeyD)
	in.Update()
	if got := in.Seed(); got != 11 {
		t.Fatalf("seed = %d, want 11", got)
	}
}

func TestFovKeys(t *testing.T) {
	in, cam, _ := newTestInput()

	in.KeyDown(common.KeyW)
	in.Update()
	if cam.Fov() != 59 {
		t.Fatalf("fov = %v, want 59", cam.Fov())
	}
	if !cam.Changed() {
		t.Fatal("fov change did not raise the camera flag")
	}
	in.KeyUp(common.KeyW)

	in.KeyDown(common.KeyRightShift)
	in.KeyDown(common.KeyS)
	in.Update()
	in.Update()
	if cam.Fov() != 61 {
		t.Fatalf("fov = %v, want 61", cam.Fov())
	}
}

func TestOrbitAndZoomMoveCamera(t *testing.T) {
	in, cam, _ := newTestInput()
	ctrl := cam.Controller()
	azimuth, radius := ctrl.Azimuth(), ctrl.Radius()

	in.KeyDown(common.KeyRight)
	in.KeyDown(common.KeyQ)
	in.Update()
	if ctrl.Azimuth() <= azimuth {
		t.Fatalf("azimuth %v did not increase from %v", ctrl.Azimuth(), azimuth)
	}
	if ctrl.Radius() >= radius {
		t.Fatalf("radius %v did not shrink from %v", ctrl.Radius(), radius)
	}
	if !cam.Changed() {
		t.Fatal("orbit did not raise the camera flag")
	}

	in.KeyUp(common.KeyRight)
	in.KeyUp(common.KeyQ)
	cam.ClearChanged()
	in.Update()
	if cam.Changed() {
		t.Fatal("idle tick changed the camera")
	}
}

func TestScrollIsConsumedOnce(t *testing.T) {
	in, cam, _ := newTestInput()
	ctrl := cam.Controller()
	radius := ctrl.Radius()

	in.Scroll(2)
	in.Update()
	after := ctrl.Radius()
	if after >= radius {
		t.Fatalf("radius %v did not shrink from %v", after, radius)
	}
	in.Update()
	if ctrl.Radius() != after {
		t.Fatal("scroll applied twice")
	}
}

func TestLightKeysRotateLight(t *testing.T) {
	in, _, l := newTestInput()
	pitch, yaw := l.Rotation()

	in.KeyDown(common.KeyL)
	in.KeyDown(common.KeyK)
	in.Update()
	p, y := l.Rotation()
	if p <= pitch || y <= yaw {
		t.Fatalf("rotation (%v, %v) did not increase from (%v, %v)", p, y, pitch, yaw)
	}
	if !l.Changed() {
		t.Fatal("rotation did not raise the light flag")
	}
}

func TestSnapshotIsOneShot(t *testing.T) {
	in, _, _ := newTestInput()
	in.KeyDown(common.KeyF12)
	if !in.Update().Snapshot {
		t.Fatal("F12 press did not request a snapshot")
	}
	if in.Update().Snapshot {
		t.Fatal("held F12 requested a second snapshot")
	}
}

func TestNilCollaborators(t *testing.T) {
	in := NewInput(nil, nil)
	in.KeyDown(common.KeyW)
	in.KeyDown(common.KeyJ)
	in.KeyDown(common.KeyD)
	in.Update()
	if in.Seed() != 1 {
		t.Fatalf("seed = %d, want 1", in.Seed())
	}
}
