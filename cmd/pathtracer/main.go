package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/present"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/renderer"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/scene"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/window"
)

type options struct {
	seed       int64
	spheres    uint
	radiusMin  float64
	radiusMax  float64
	placement  float64
	maxSamples uint
	fov        float64
	width      int
	height     int
	backend    string
	headless   bool
	frames     int
	out        string
	overlay    bool
	profile    bool
	vsync      bool
	fps        float64
	workers    int
	fixedSize  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("pathtracer", flag.ContinueOnError)
	fs.Int64Var(&o.seed, "seed", 0, "scene seed")
	fs.UintVar(&o.spheres, "spheres", uint(scene.DefaultCount), "number of sphere placement attempts")
	fs.Float64Var(&o.radiusMin, "radius-min", float64(scene.DefaultRadius.Min), "minimum sphere radius")
	fs.Float64Var(&o.radiusMax, "radius-max", float64(scene.DefaultRadius.Max), "maximum sphere radius")
	fs.Float64Var(&o.placement, "placement", float64(scene.DefaultPlacementRadius), "radius of the disk spheres are placed in")
	fs.UintVar(&o.maxSamples, "max-samples", uint(accumulator.DefaultMaxSampleCount), "samples after which accumulation stops")
	fs.Float64Var(&o.fov, "fov", 60, "vertical field of view in degrees")
	fs.IntVar(&o.width, "width", 1280, "output width in pixels")
	fs.IntVar(&o.height, "height", 720, "output height in pixels")
	fs.StringVar(&o.backend, "backend", "wgpu", "compute backend: cpu or wgpu")
	fs.BoolVar(&o.headless, "headless", false, "render without a window and write a PNG")
	fs.IntVar(&o.frames, "frames", 64, "ticks to run in headless mode")
	fs.StringVar(&o.out, "out", "Images", "directory snapshots are written to")
	fs.BoolVar(&o.overlay, "overlay", false, "draw the seed and sample counters into snapshots")
	fs.BoolVar(&o.profile, "profile", false, "log frame and sample rates")
	fs.BoolVar(&o.vsync, "vsync", false, "wait for vertical blank when presenting")
	fs.Float64Var(&o.fps, "fps", 0, "frame rate cap, 0 for uncapped")
	fs.IntVar(&o.workers, "workers", 8, "worker pool size for the cpu backend and the blend")
	fs.BoolVar(&o.fixedSize, "fixed-size", false, "prevent window resizing")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.frames < 1 {
		return o, fmt.Errorf("-frames must be at least 1: %w", common.ErrInvalidParameter)
	}
	if o.maxSamples < 1 || o.maxSamples > math.MaxUint32 {
		return o, fmt.Errorf("-max-samples must be between 1 and %d: %w", uint32(math.MaxUint32), common.ErrInvalidParameter)
	}
	if o.spheres > math.MaxUint32 {
		return o, fmt.Errorf("-spheres must be at most %d: %w", uint32(math.MaxUint32), common.ErrInvalidParameter)
	}
	return o, nil
}

func (o options) sceneParams() scene.Params {
	return scene.Params{
		Count:           uint32(o.spheres),
		Radius:          common.Range{Min: float32(o.radiusMin), Max: float32(o.radiusMax)},
		PlacementRadius: float32(o.placement),
		Brightness:      scene.DefaultBrightness,
	}
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("[Main] %v", err)
	}
	if err := run(o); err != nil {
		log.Fatalf("[Main] %v", err)
	}
}

func run(o options) error {
	backendType, err := renderer.ParseBackendType(o.backend)
	if err != nil {
		return err
	}
	if err := o.sceneParams().Validate(); err != nil {
		return err
	}

	pool := worker.NewDynamicWorkerPool(o.workers, 256, time.Second)
	defer pool.Stop()

	presentMode := renderer.PresentModeUncapped
	if o.vsync {
		presentMode = renderer.PresentModeVSync
	}
	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithPresentMode(presentMode),
		renderer.WithMaxBounces(renderer.DefaultMaxBounces),
		renderer.WithWorkerPool(pool),
	}

	engineOptions := []engine.EngineBuilderOption{
		engine.WithSeed(o.seed),
		engine.WithFov(float32(o.fov)),
		engine.WithSceneParams(o.sceneParams()),
		engine.WithMaxSampleCount(uint32(o.maxSamples)),
		engine.WithRenderFrameLimit(o.fps),
		engine.WithWorkerPool(pool),
		engine.WithSnapshotSink(present.NewPNGSink(o.out, present.WithOverlay(o.overlay))),
		engine.WithProfiling(o.profile),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithInterval(time.Second))),
	}

	if o.headless {
		r, err := renderer.NewRenderer(backendType, rendererOptions...)
		if err != nil {
			return err
		}
		defer r.Release()

		eng, err := engine.NewEngine(append(engineOptions,
			engine.WithRenderer(r),
			engine.WithResolution(common.Resolution{Width: o.width, Height: o.height}),
		)...)
		if err != nil {
			return err
		}
		defer eng.Release()

		frame, err := eng.RunFrames(o.frames)
		if err != nil {
			return err
		}
		path, err := eng.Snapshot()
		if err != nil {
			return err
		}
		log.Printf("[Main] rendered seed %d with %d samples to %s", frame.Seed, frame.SampleCount, path)
		return nil
	}

	w, err := window.NewWindow(
		window.WithTitle(engine.Title(o.seed, 0)),
		window.WithSize(o.width, o.height),
		window.WithResizable(!o.fixedSize),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := renderer.NewRenderer(backendType, append(rendererOptions,
		renderer.WithSurface(w.SurfaceDescriptor(), w.Width(), w.Height()),
	)...)
	if err != nil {
		return err
	}
	defer r.Release()

	eng, err := engine.NewEngine(append(engineOptions,
		engine.WithRenderer(r),
		engine.WithWindow(w),
	)...)
	if err != nil {
		return err
	}
	defer eng.Release()

	return eng.Run()
}
