package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
)

// Stats is one reporting interval's summary.
type Stats struct {
	// FPS is ticks per second over the interval.
	FPS float64
	// SamplesPerSecond is accumulated samples per second over the interval.
	SamplesPerSecond float64
	// SampleCount is the sample count reported with the most recent tick.
	SampleCount uint32
	// HeapMB is the live heap in MiB.
	HeapMB float64
	// AllocRateMB is heap allocation churn in MiB per second.
	AllocRateMB float64
	// GCCount is the total number of completed GC cycles.
	GCCount uint32
}

// Profiler tracks frame rate, sample throughput and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	sampleCount    int
	lastSamples    uint32
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	now    func() time.Time
	logger common.Logger
	last   Stats
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		logger:         common.DefaultLogger(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame. Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - dispatched: whether this frame accumulated a new sample
//   - sampleCount: the controller's sample count after the frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(dispatched bool, sampleCount uint32) bool {
	p.frameCount++
	if dispatched {
		p.sampleCount++
	}
	p.lastSamples = sampleCount

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	p.last = Stats{
		FPS:              float64(p.frameCount) / elapsed.Seconds(),
		SamplesPerSecond: float64(p.sampleCount) / elapsed.Seconds(),
		SampleCount:      p.lastSamples,
		HeapMB:           float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:      float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:          gcCount,
	}

	p.logger.Printf("[Profiler] FPS: %.2f | Samples/s: %.2f | Samples: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs)",
		p.last.FPS, p.last.SamplesPerSecond, p.last.SampleCount, p.last.HeapMB, p.last.AllocRateMB, gcCount, lastPauseUs)

	p.frameCount = 0
	p.sampleCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recent reporting interval.
func (p *Profiler) Last() Stats {
	return p.last
}
