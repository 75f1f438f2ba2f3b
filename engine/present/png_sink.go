package present

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
	"github.com/Carmen-Shannon/oxy-pathtracer/engine/accumulator"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type pngSink struct {
	mu *sync.Mutex

	dir     string
	overlay bool
	logger  common.Logger

	lastPath string
}

// PNGSink writes frames as PNG files.
type PNGSink interface {
	Sink

	// Capture encodes one frame and returns the written path.
	//
	// Parameters:
	//   - frame: the frame to store
	//
	// Returns:
	//   - string: the path of the written file
	//   - error: an error if the directory or file could not be written
	Capture(frame accumulator.Frame) (string, error)

	// LastPath returns the path of the most recent capture, or "" if none.
	LastPath() string
}

var _ PNGSink = &pngSink{}

// NewPNGSink creates a sink that writes "Seed_<seed> - sampleCount_<n>.png" into dir on every Present.
// The directory is created on first use.
//
// Parameters:
//   - dir: the output directory
//   - options: functional options
//
// Returns:
//   - PNGSink: the sink
func NewPNGSink(dir string, options ...PNGSinkBuilderOption) PNGSink {
	s := &pngSink{
		mu:     &sync.Mutex{},
		dir:    dir,
		logger: common.DefaultLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SnapshotName returns the file name a frame is stored under.
//
// Parameters:
//   - seed: the scene seed
//   - sampleCount: the number of accumulated samples
//
// Returns:
//   - string: the file name
func SnapshotName(seed int64, sampleCount uint32) string {
	return fmt.Sprintf("Seed_%d - sampleCount_%d.png", seed, sampleCount)
}

func (s *pngSink) Present(frame accumulator.Frame) error {
	_, err := s.Capture(frame)
	return err
}

func (s *pngSink) Capture(frame accumulator.Frame) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.Image == nil {
		return "", fmt.Errorf("capture: frame has no image: %w", common.ErrInvalidParameter)
	}
	img := frame.Image.ToRGBA()
	if s.overlay {
		drawOverlay(img, frame)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	path := filepath.Join(s.dir, SnapshotName(frame.Seed, frame.SampleCount))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	s.lastPath = path
	s.logger.Printf("[PNGSink] saved %s", path)
	return path, nil
}

func (s *pngSink) LastPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath
}

func (s *pngSink) Release() {}

// drawOverlay writes the seed and sample counters in the top-left corner.
func drawOverlay(dst *image.RGBA, frame accumulator.Frame) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	lineHeight := face.Metrics().Height.Ceil()
	for i, line := range []string{
		fmt.Sprintf("Seed = %d", frame.Seed),
		fmt.Sprintf("Samples = %d", frame.SampleCount),
	} {
		d.Dot = fixed.P(4, 4+(i+1)*lineHeight)
		d.DrawString(line)
	}
}
