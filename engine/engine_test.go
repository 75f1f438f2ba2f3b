package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/present"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

type recordingSink struct {
	frames   []accumulator.Frame
	released int
}

func (s *recordingSink) Present(frame accumulator.Frame) error {
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) Release() { s.released++ }

// fakeWindow runs a fixed number of message-loop iterations.
type fakeWindow struct {
	width, height int
	polls         int
	title         string

	beforePoll map[int]func()
	polled     int

	onUpdate  func()
	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onKeyUp   func(keyCode uint32)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(cb func()) { w.onUpdate = cb }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetScrollCallback(cb func(delta float32)) { w.onScroll = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(keyCode uint32)) { w.onKeyDown = cb }
func (w *fakeWindow) SetKeyUpCallback(cb func(keyCode uint32)) { w.onKeyUp = cb }
func (w *fakeWindow) SetTitle(title string) { w.title = title }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool { return w.polled < w.polls }
func (w *fakeWindow) Close() error { return nil }
func (w *fakeWindow) Width() int { return w.width }
func (w *fakeWindow) Height() int { return w.height }
func (w *fakeWindow) ProcessMessages() {
	for w.PollOnce() {
	}
}

func (w *fakeWindow) PollOnce() bool {
	if !w.IsRunning() {
		return false
	}
	if fn := w.beforePoll[w.polled]; fn != nil {
		fn()
	}
	w.polled++
	if w.onUpdate != nil {
		w.onUpdate()
	}
	return true
}

func testRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeCPU, renderer.WithLogger(common.NopLogger{}))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func smallScene() scene.Params {
	return scene.Params{
		Count:           4,
		Radius:          common.Range{Min: 1, Max: 2},
		PlacementRadius: 10,
		Brightness:      scene.DefaultBrightness,
	}
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	base := []EngineBuilderOption{
		WithRenderer(testRenderer(t)),
		WithResolution(common.Resolution{Width: 16, Height: 8}),
		WithSceneParams(smallScene()),
		WithLogger(common.NopLogger{}),
	}
	e, err := NewEngine(append(base, options...)...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	_, err := NewEngine(WithLogger(common.NopLogger{}))
	if !errors.Is(err, common.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestNewEngineRejectsInvalidResolution(t *testing.T) {
	_, err := NewEngine(
		WithRenderer(testRenderer(t)),
		WithResolution(common.Resolution{Width: 0, Height: 8}),
		WithLogger(common.NopLogger{}),
	)
	if !errors.Is(err, common.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestRunFramesAccumulates(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, WithSeed(5), WithSinks(sink))

	frame, err := e.RunFrames(3)
	if err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if frame.SampleCount != 3 || frame.Seed != 5 {
		t.Fatalf("frame = %d samples seed %d, want 3 samples seed 5", frame.SampleCount, frame.Seed)
	}
	if len(sink.frames) != 3 {
		t.Fatalf("sink saw %d frames, want 3", len(sink.frames))
	}
	for i, f := range sink.frames {
		if f.SampleCount != uint32(i+1) || f.Reset || !f.Dispatched {
			t.Fatalf("frame %d = %+v", i, f)
		}
	}
	if e.LastFrame().SampleCount != 3 {
		t.Fatalf("LastFrame samples = %d", e.LastFrame().SampleCount)
	}
}

func TestSeedKeyRestartsAccumulation(t *testing.T) {
	e := newTestEngine(t, WithSeed(1))
	if _, err := e.RunFrames(4); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}

	e.Input().KeyDown(common.KeyD)
	e.Input().KeyUp(common.KeyD)
	frame, err := e.RunFrames(1)
	if err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if frame.Seed != 2 || !frame.Reset || frame.SampleCount != 1 {
		t.Fatalf("frame = %+v, want seed 2 reset with 1 sample", frame)
	}
	if e.Controller().Seed() != 2 {
		t.Fatalf("controller seed = %d", e.Controller().Seed())
	}
}

func TestLightRotationRestartsAccumulation(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.RunFrames(2); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	e.Input().KeyDown(common.KeyJ)
	frame, _ := e.RunFrames(1)
	e.Input().KeyUp(common.KeyJ)
	if !frame.Reset || frame.SampleCount != 1 {
		t.Fatalf("frame = %+v, want reset with 1 sample", frame)
	}
}

func TestRunStopsWhenConverged(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, WithMaxSampleCount(2), WithSinks(sink))

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := e.Controller().SampleCount(); got != 2 {
		t.Fatalf("SampleCount = %d, want 2", got)
	}
	if e.Controller().State() != accumulator.StateIdle {
		t.Fatalf("State = %v, want idle", e.Controller().State())
	}
	last := sink.frames[len(sink.frames)-1]
	if last.Dispatched || last.SampleCount != 2 {
		t.Fatalf("last frame = %+v", last)
	}
}

func TestRunDrivesWindowLoop(t *testing.T) {
	w := &fakeWindow{width: 16, height: 8, polls: 4}
	w.beforePoll = map[int]func(){
		2: func() { w.onResize(24, 12) },
	}
	sink := &recordingSink{}
	e := newTestEngine(t, WithWindow(w), WithSeed(9), WithSinks(sink))

	if w.onKeyDown == nil || w.onScroll == nil || w.onResize == nil {
		t.Fatal("window callbacks not bound")
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 4 {
		t.Fatalf("sink saw %d frames, want 4", len(sink.frames))
	}
	if got := e.Controller().Resolution(); got != (common.Resolution{Width: 24, Height: 12}) {
		t.Fatalf("Resolution = %v, want 24x12", got)
	}
	resized := sink.frames[2]
	if !resized.Reset || resized.SampleCount != 1 {
		t.Fatalf("resized frame = %+v", resized)
	}
	if want := "Seed = 9 | Samples = 2"; w.title != want {
		t.Fatalf("title = %q, want %q", w.title, want)
	}
}

func TestWindowKeysReachInput(t *testing.T) {
	w := &fakeWindow{width: 16, height: 8, polls: 1}
	e := newTestEngine(t, WithWindow(w))
	w.onKeyDown(common.KeyD)
	w.onKeyUp(common.KeyD)
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.LastFrame().Seed != 1 {
		t.Fatalf("seed = %d, want 1", e.LastFrame().Seed)
	}
}

func TestSnapshotKeyWritesPNG(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, WithSeed(3), WithSnapshotSink(present.NewPNGSink(dir, present.WithPNGLogger(common.NopLogger{}))))

	if _, err := e.RunFrames(2); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	e.Input().KeyDown(common.KeyF12)
	if _, err := e.RunFrames(1); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, present.SnapshotName(3, 3))); err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}

	path, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if filepath.Base(path) != present.SnapshotName(3, 3) {
		t.Fatalf("path = %q", path)
	}
}

func TestSnapshotWithoutSink(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Snapshot(); !errors.Is(err, common.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestQuitIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, WithSinks(sink))
	e.Quit()
	e.Quit()

	frame, err := e.RunFrames(5)
	if err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	if frame.Image != nil || len(sink.frames) != 0 {
		t.Fatalf("ticked after Quit: %+v", frame)
	}
}

func TestReleaseDeactivates(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, WithSinks(sink))
	if _, err := e.RunFrames(1); err != nil {
		t.Fatalf("RunFrames: %v", err)
	}
	e.Release()
	e.Release()
	if e.Controller().State() != accumulator.StateInactive {
		t.Fatalf("State = %v, want inactive", e.Controller().State())
	}
	if sink.released != 1 {
		t.Fatalf("sink released %d times, want 1", sink.released)
	}
}

func TestTitle(t *testing.T) {
	if got := Title(-2, 8192); got != "Seed = -2 | Samples = 8192" {
		t.Fatalf("Title = %q", got)
	}
}

func TestFrameDuration(t *testing.T) {
	if frameDuration(0) != 0 || frameDuration(-1) != 0 {
		t.Fatal("non-positive fps must uncap")
	}
	if got := frameDuration(50); got.Milliseconds() != 20 {
		t.Fatalf("frameDuration(50) = %v", got)
	}
}
