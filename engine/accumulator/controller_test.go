package accumulator

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
)

// fakeBackend fills every pixel of the target with the 1-based index of the dispatch.
type fakeBackend struct {
	allocated  common.Resolution
	allocs     []common.Resolution
	uploads    [][]scene.Sphere
	dispatches []renderer.DispatchParams
	released   int

	allocErr    error
	uploadErr   error
	dispatchErr error
}

func (f *fakeBackend) Allocate(res common.Resolution) error {
	if f.allocErr != nil {
		return f.allocErr
	}
	f.allocated = res
	f.allocs = append(f.allocs, res)
	return nil
}

func (f *fakeBackend) UploadScene(spheres []scene.Sphere) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, spheres)
	return nil
}

func (f *fakeBackend) Dispatch(params renderer.DispatchParams, target *common.ImageBuffer) error {
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	f.dispatches = append(f.dispatches, params)
	v := float32(len(f.dispatches))
	for i := range target.Pix {
		target.Pix[i] = v
	}
	return nil
}

func (f *fakeBackend) Release() {
	f.released++
}

type fakeWatcher struct {
	changed bool
}

func (w *fakeWatcher) Changed() bool { return w.changed }
func (w *fakeWatcher) ClearChanged() { w.changed = false }

var testResolution = common.Resolution{Width: 8, Height: 4}

func baseInputs() FrameInputs {
	return FrameInputs{Fov: 60, Seed: 1, Resolution: testResolution}
}

func newTestController(t *testing.T, backend *fakeBackend, options ...ControllerBuilderOption) Controller {
	t.Helper()
	opts := append([]ControllerBuilderOption{
		WithBackend(backend),
		WithSeed(1),
		WithFov(60),
		WithResolution(testResolution),
		WithLogger(common.NopLogger{}),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, options...)
	c, err := NewController(opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.OnActivate(); err != nil {
		t.Fatalf("OnActivate: %v", err)
	}
	return c
}

func mustStep(t *testing.T, c Controller, in FrameInputs) Frame {
	t.Helper()
	f, err := c.Step(in)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return f
}

func TestStepCountsUpToCapThenIdles(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, WithMaxSampleCount(4))

	if c.State() != StateAccumulating || c.SampleCount() != 0 {
		t.Fatalf("after activation: state %s count %d", c.State(), c.SampleCount())
	}

	var tick4 *common.ImageBuffer
	for i, want := range []uint32{1, 2, 3, 4} {
		f := mustStep(t, c, baseInputs())
		if f.SampleCount != want || !f.Dispatched || f.Reset {
			t.Fatalf("tick %d: count %d dispatched %v reset %v", i+1, f.SampleCount, f.Dispatched, f.Reset)
		}
		tick4 = f.Image.Clone()
	}
	if c.State() != StateIdle {
		t.Fatalf("expected idle at the cap, got %s", c.State())
	}

	for i := 0; i < 3; i++ {
		f := mustStep(t, c, baseInputs())
		if f.SampleCount != 4 || f.Dispatched {
			t.Fatalf("idle tick: count %d dispatched %v", f.SampleCount, f.Dispatched)
		}
		if !f.Image.Equal(tick4) {
			t.Fatal("idle tick changed the converged image")
		}
	}
	if len(backend.dispatches) != 4 {
		t.Fatalf("expected 4 dispatches, got %d", len(backend.dispatches))
	}
}

func TestRunningMean(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend, WithMaxSampleCount(16))

	for n := 1; n <= 10; n++ {
		f := mustStep(t, c, baseInputs())
		want := float32(n+1) / 2 // mean of 1..n
		for i, v := range f.Image.Pix {
			if diff := v - want; diff > 1e-4 || diff < -1e-4 {
				t.Fatalf("after %d samples pix[%d] = %g, want %g", n, i, v, want)
			}
		}
	}
}

func TestSeedChangeRegeneratesAndResets(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	seedOne := c.Scene()

	mustStep(t, c, baseInputs())
	if f := mustStep(t, c, baseInputs()); f.SampleCount != 2 {
		t.Fatalf("tick 2: count %d", f.SampleCount)
	}

	in := baseInputs()
	in.Seed = 2
	f := mustStep(t, c, in)
	if !f.Reset || f.SampleCount != 1 {
		t.Fatalf("tick 3: reset %v count %d, want a reset followed by one sample", f.Reset, f.SampleCount)
	}
	if c.Seed() != 2 || f.Seed != 2 {
		t.Fatalf("seed = %d (frame %d), want 2", c.Seed(), f.Seed)
	}
	if reflect.DeepEqual(c.Scene().Spheres, seedOne.Spheres) {
		t.Fatal("seed 2 scene equals the seed 1 scene")
	}
	if !reflect.DeepEqual(c.Scene(), scene.GenerateParams(2, c.Scene().Params)) {
		t.Fatal("active scene is not the deterministic scene for seed 2")
	}
	if len(backend.uploads) != 2 {
		t.Fatalf("expected 2 uploads (activation + seed change), got %d", len(backend.uploads))
	}
}

func TestFovChangeResets(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())
	mustStep(t, c, baseInputs())

	in := baseInputs()
	in.Fov = 59
	if f := mustStep(t, c, in); !f.Reset || f.SampleCount != 1 {
		t.Fatalf("fov change: reset %v count %d", f.Reset, f.SampleCount)
	}
	if f := mustStep(t, c, in); f.Reset || f.SampleCount != 2 {
		t.Fatalf("unchanged fov: reset %v count %d", f.Reset, f.SampleCount)
	}
}

func TestWatcherChangeResetsAndClears(t *testing.T) {
	backend := &fakeBackend{}
	cam, sun := &fakeWatcher{}, &fakeWatcher{}
	c := newTestController(t, backend, WithWatched(cam, sun))
	mustStep(t, c, baseInputs())
	mustStep(t, c, baseInputs())

	sun.changed = true
	if f := mustStep(t, c, baseInputs()); !f.Reset || f.SampleCount != 1 {
		t.Fatalf("light change: reset %v count %d", f.Reset, f.SampleCount)
	}
	if sun.changed {
		t.Fatal("watcher flag not cleared")
	}

	cam.changed, sun.changed = true, true
	if f := mustStep(t, c, baseInputs()); !f.Reset || f.SampleCount != 1 {
		t.Fatalf("camera and light change: reset %v count %d", f.Reset, f.SampleCount)
	}
	if cam.changed || sun.changed {
		t.Fatal("all changed flags must be cleared in the same tick")
	}
}

func TestActivationClearsWatchers(t *testing.T) {
	cam := &fakeWatcher{changed: true}
	c := newTestController(t, &fakeBackend{}, WithWatched(cam))
	if cam.changed {
		t.Fatal("activation did not clear watcher flags")
	}
	if f := mustStep(t, c, baseInputs()); f.Reset {
		t.Fatal("first tick after activation reset without a change")
	}
}

func TestSimultaneousTriggersResetOnce(t *testing.T) {
	backend := &fakeBackend{}
	cam := &fakeWatcher{}
	c := newTestController(t, backend, WithWatched(cam))
	for i := 0; i < 3; i++ {
		mustStep(t, c, baseInputs())
	}

	cam.changed = true
	in := FrameInputs{Fov: 45, Seed: 9, Resolution: common.Resolution{Width: 16, Height: 16}}
	f := mustStep(t, c, in)
	if !f.Reset || f.SampleCount != 1 {
		t.Fatalf("reset %v count %d, want one reset then one sample", f.Reset, f.SampleCount)
	}
	if len(backend.uploads) != 2 || len(backend.allocs) != 2 {
		t.Fatalf("uploads %d allocs %d, want one of each beyond activation", len(backend.uploads), len(backend.allocs))
	}
	if f.Image.Resolution() != in.Resolution {
		t.Fatalf("image is %s, want %s", f.Image.Resolution(), in.Resolution)
	}
	if got := f.Image.Pix[0]; got != float32(len(backend.dispatches)) {
		t.Fatalf("first sample after reset should overwrite the image, got %g", got)
	}
}

func TestResolutionChangeReallocates(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())

	in := baseInputs()
	in.Resolution = common.Resolution{Width: 3, Height: 5}
	f := mustStep(t, c, in)
	if !f.Reset || f.SampleCount != 1 {
		t.Fatalf("reset %v count %d", f.Reset, f.SampleCount)
	}
	if c.Resolution() != in.Resolution || backend.allocated != in.Resolution {
		t.Fatalf("controller at %s, backend at %s, want %s", c.Resolution(), backend.allocated, in.Resolution)
	}
	if len(f.Image.Pix) != 3*5*4 {
		t.Fatalf("converged buffer has %d channels", len(f.Image.Pix))
	}
}

func TestDispatchFailureKeepsLastFrame(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())
	good := mustStep(t, c, baseInputs())
	goodImage := good.Image.Clone()

	backend.dispatchErr = errors.New("device lost")
	f, err := c.Step(baseInputs())
	if !errors.Is(err, common.ErrBackendDispatch) {
		t.Fatalf("expected ErrBackendDispatch, got %v", err)
	}
	if f.SampleCount != 2 || c.SampleCount() != 2 || f.Dispatched {
		t.Fatalf("count advanced on failure: frame %d controller %d", f.SampleCount, c.SampleCount())
	}
	if !f.Image.Equal(goodImage) {
		t.Fatal("converged image corrupted by a failed dispatch")
	}

	backend.dispatchErr = nil
	if f := mustStep(t, c, baseInputs()); f.SampleCount != 3 {
		t.Fatalf("recovery tick: count %d, want 3", f.SampleCount)
	}
}

func TestAllocationFailureRetainsState(t *testing.T) {
	backend := &fakeBackend{}
	cam := &fakeWatcher{}
	c := newTestController(t, backend, WithWatched(cam))
	mustStep(t, c, baseInputs())
	good := mustStep(t, c, baseInputs())
	goodImage := good.Image.Clone()

	backend.allocErr = errors.New("out of memory")
	cam.changed = true
	in := baseInputs()
	in.Resolution = common.Resolution{Width: 32, Height: 32}
	in.Fov = 50
	in.Seed = 7

	f, err := c.Step(in)
	if !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if f.SampleCount != 2 || c.SampleCount() != 2 || f.Reset {
		t.Fatalf("partial reset: count %d reset %v", c.SampleCount(), f.Reset)
	}
	if c.Resolution() != testResolution || c.Seed() != 1 {
		t.Fatalf("state committed on failure: %s seed %d", c.Resolution(), c.Seed())
	}
	if !cam.changed {
		t.Fatal("watcher flag cleared by a failed tick")
	}
	if !f.Image.Equal(goodImage) {
		t.Fatal("converged image changed by a failed tick")
	}
	if len(backend.uploads) != 1 {
		t.Fatalf("scene uploaded despite allocation failure: %d uploads", len(backend.uploads))
	}

	backend.allocErr = nil
	f = mustStep(t, c, in)
	if !f.Reset || f.SampleCount != 1 || c.Seed() != 7 || cam.changed {
		t.Fatalf("retry: reset %v count %d seed %d watcher %v", f.Reset, f.SampleCount, c.Seed(), cam.changed)
	}
}

func TestUploadFailureRetainsScene(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())
	before := c.Scene()

	backend.uploadErr = errors.New("buffer creation failed")
	in := baseInputs()
	in.Seed = 3
	if _, err := c.Step(in); !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if c.Seed() != 1 || c.SampleCount() != 1 || !reflect.DeepEqual(c.Scene(), before) {
		t.Fatalf("seed %d count %d, want prior state", c.Seed(), c.SampleCount())
	}
}

func TestOversizedResizeLeavesBackendSized(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())

	in := baseInputs()
	in.Resolution = common.Resolution{Width: common.MaxImageDimension + 1, Height: 4}
	if _, err := c.Step(in); !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if backend.allocated != testResolution || len(backend.allocs) != 1 {
		t.Fatalf("backend resized by a failed tick: %s after %v", backend.allocated, backend.allocs)
	}

	f := mustStep(t, c, baseInputs())
	if f.SampleCount != 2 || f.Reset {
		t.Fatalf("after failed resize: count %d reset %v", f.SampleCount, f.Reset)
	}
}

func TestUploadFailureAfterResizeRestoresBackend(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	mustStep(t, c, baseInputs())

	backend.uploadErr = errors.New("device lost")
	in := baseInputs()
	in.Resolution = common.Resolution{Width: 16, Height: 16}
	in.Seed = 9
	if _, err := c.Step(in); !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if c.Resolution() != testResolution {
		t.Fatalf("resolution committed on failure: %s", c.Resolution())
	}
	if backend.allocated != testResolution {
		t.Fatalf("backend left at %s, want %s", backend.allocated, testResolution)
	}

	backend.uploadErr = nil
	f := mustStep(t, c, baseInputs())
	if f.SampleCount != 2 || f.Reset {
		t.Fatalf("after failed reset: count %d reset %v", f.SampleCount, f.Reset)
	}
	if f.Image.Width != testResolution.Width || f.Image.Height != testResolution.Height {
		t.Fatalf("image %dx%d, want %s", f.Image.Width, f.Image.Height, testResolution)
	}
}

func TestResetFrameCarriesFirstSample(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	for i := 0; i < 3; i++ {
		mustStep(t, c, baseInputs())
	}

	in := baseInputs()
	in.Fov = 45
	f := mustStep(t, c, in)
	if !f.Reset || !f.Dispatched || f.SampleCount != 1 {
		t.Fatalf("reset frame: reset %v dispatched %v count %d", f.Reset, f.Dispatched, f.SampleCount)
	}
	if len(backend.dispatches) != 4 {
		t.Fatalf("%d dispatches, want 4", len(backend.dispatches))
	}
}

func TestJitterDrawnFreshEachDispatch(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(t, backend)
	for i := 0; i < 5; i++ {
		mustStep(t, c, baseInputs())
	}
	seen := map[float32]bool{}
	for i, p := range backend.dispatches {
		if p.SampleIndex != uint32(i) {
			t.Fatalf("dispatch %d carries sample index %d", i, p.SampleIndex)
		}
		for _, v := range []float32{p.PixelJitter.X(), p.PixelJitter.Y(), p.NoiseSeed} {
			if v < 0 || v >= 1 {
				t.Fatalf("dispatch %d: value %g outside [0,1)", i, v)
			}
		}
		if seen[p.NoiseSeed] {
			t.Fatalf("dispatch %d reused noise seed %g", i, p.NoiseSeed)
		}
		seen[p.NoiseSeed] = true
	}
}

func TestCountTransitionsAreMonotonic(t *testing.T) {
	backend := &fakeBackend{}
	cam := &fakeWatcher{}
	c := newTestController(t, backend, WithMaxSampleCount(5), WithWatched(cam))
	rng := rand.New(rand.NewPCG(3, 4))
	in := baseInputs()

	prev := c.SampleCount()
	for tick := 0; tick < 300; tick++ {
		switch rng.IntN(10) {
		case 0:
			in.Seed++
		case 1:
			in.Fov++
		case 2:
			cam.changed = true
		case 3:
			in.Resolution.Width = 4 + rng.IntN(4)
		}
		f := mustStep(t, c, in)
		switch {
		case f.Reset:
			if f.SampleCount != 1 {
				t.Fatalf("tick %d: reset tick ended at %d", tick, f.SampleCount)
			}
		case prev < 5:
			if f.SampleCount != prev+1 {
				t.Fatalf("tick %d: %d -> %d", tick, prev, f.SampleCount)
			}
		default:
			if f.SampleCount != prev || f.Dispatched {
				t.Fatalf("tick %d: idle count moved %d -> %d", tick, prev, f.SampleCount)
			}
		}
		prev = f.SampleCount
	}
}

func TestInactiveController(t *testing.T) {
	backend := &fakeBackend{}
	c, err := NewController(WithBackend(backend), WithResolution(testResolution), WithLogger(common.NopLogger{}))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if _, err := c.Step(baseInputs()); !errors.Is(err, common.ErrNotActive) {
		t.Fatalf("step before activation: %v", err)
	}
	if c.State() != StateInactive {
		t.Fatalf("state %s", c.State())
	}

	if err := c.OnActivate(); err != nil {
		t.Fatalf("OnActivate: %v", err)
	}
	c.OnDeactivate()
	if backend.released != 1 {
		t.Fatalf("backend released %d times", backend.released)
	}
	if _, err := c.Step(baseInputs()); !errors.Is(err, common.ErrNotActive) {
		t.Fatalf("step after deactivation: %v", err)
	}

	if err := c.OnActivate(); err != nil {
		t.Fatalf("reactivation: %v", err)
	}
	if c.SampleCount() != 0 || c.State() != StateAccumulating {
		t.Fatalf("reactivated at count %d state %s", c.SampleCount(), c.State())
	}
}

func TestActivationFailure(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("no memory")}
	c, err := NewController(WithBackend(backend), WithResolution(testResolution), WithLogger(common.NopLogger{}))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.OnActivate(); !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if c.State() != StateInactive {
		t.Fatalf("state %s after failed activation", c.State())
	}
	backend.uploadErr = nil
	if err := c.OnActivate(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestOversizedActivationReleasesBackend(t *testing.T) {
	backend := &fakeBackend{}
	c, err := NewController(
		WithBackend(backend),
		WithResolution(common.Resolution{Width: common.MaxImageDimension + 1, Height: 4}),
		WithLogger(common.NopLogger{}),
	)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.OnActivate(); !errors.Is(err, common.ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if c.State() != StateInactive {
		t.Fatalf("state %s after failed activation", c.State())
	}
	if backend.released != 1 {
		t.Fatalf("backend released %d times, want 1", backend.released)
	}
}

func TestNewControllerRejectsInvalidParameters(t *testing.T) {
	backend := &fakeBackend{}
	tests := []struct {
		name    string
		options []ControllerBuilderOption
	}{
		{name: "no backend"},
		{name: "zero cap", options: []ControllerBuilderOption{WithBackend(backend), WithMaxSampleCount(0)}},
		{name: "negative radius", options: []ControllerBuilderOption{WithBackend(backend), WithSceneParams(scene.Params{Count: 1, Radius: common.Range{Min: -1, Max: 2}})}},
		{name: "zero resolution", options: []ControllerBuilderOption{WithBackend(backend), WithResolution(common.Resolution{})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.options...); !errors.Is(err, common.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestBlendParallelMatchesSerial(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	defer pool.Stop()

	rng := rand.New(rand.NewPCG(5, 6))
	serial, _ := common.NewImageBuffer(37, 23)
	sample, _ := common.NewImageBuffer(37, 23)
	for i := range serial.Pix {
		serial.Pix[i] = rng.Float32()
		sample.Pix[i] = rng.Float32()
	}
	parallel := serial.Clone()

	blend(nil, serial, sample, 7)
	blend(pool, parallel, sample, 7)
	if !serial.Equal(parallel) {
		t.Fatal("pooled blend differs from serial blend")
	}
}
