// Package scene procedurally generates the sphere field that the path tracer renders.
// Generation is a pure function of a seed and placement parameters, so an identical scene
// can always be rebuilt from the seed alone.
package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-pathtracer/common"
)

// Default placement parameters.
const (
	DefaultCount           uint32  = 100
	DefaultPlacementRadius float32 = 100.0
)

var (
	// DefaultRadius is the default closed interval sphere radii are drawn from.
	DefaultRadius = common.Range{Min: 3.0, Max: 8.0}

	// DefaultBrightness is the default interval emissive brightness multipliers are drawn from.
	DefaultBrightness = common.Range{Min: 3.0, Max: 8.0}
)

// Params configures a generation pass.
type Params struct {
	// Count is the number of candidates drawn. It is a draw budget: candidates that collide are
	// discarded without retry, so a scene holds at most Count spheres.
	Count uint32
	// Radius is the closed interval radii are drawn from.
	Radius common.Range
	// PlacementRadius is the radius of the disk on the ground plane that sphere centers are drawn from.
	PlacementRadius float32
	// Brightness is the interval the HSV value of an emissive color is drawn from.
	Brightness common.Range
}

// Validate rejects parameters that cannot describe a scene: negative or inverted intervals,
// a non-positive minimum radius, or a negative placement radius. A placement radius smaller
// than the maximum sphere radius is accepted.
//
// Returns:
//   - error: wraps common.ErrInvalidParameter, or nil
func (p Params) Validate() error {
	if err := p.Radius.Validate("sphere radius"); err != nil {
		return err
	}
	if p.Radius.Min <= 0 {
		return fmt.Errorf("sphere radius minimum %g must be positive: %w", p.Radius.Min, common.ErrInvalidParameter)
	}
	if p.PlacementRadius < 0 {
		return fmt.Errorf("placement radius %g is negative: %w", p.PlacementRadius, common.ErrInvalidParameter)
	}
	if err := p.Brightness.Validate("emission brightness"); err != nil {
		return err
	}
	return nil
}

// Scene is the result of one generation pass. It is immutable once returned and is replaced
// wholesale when the seed changes.
type Scene struct {
	// Seed is the seed the scene was generated from.
	Seed int64
	// Params are the parameters the scene was generated with.
	Params Params
	// Spheres holds the accepted spheres in acceptance order.
	Spheres []Sphere
}

// Len returns the number of accepted spheres.
func (s Scene) Len() int {
	return len(s.Spheres)
}

// Empty reports whether no sphere was accepted. An empty scene is a legal state.
func (s Scene) Empty() bool {
	return len(s.Spheres) == 0
}

// CountByMaterial tallies spheres per material branch.
//
// Returns:
//   - map[MaterialKind]int: number of spheres for each branch present
func (s Scene) CountByMaterial() map[MaterialKind]int {
	counts := make(map[MaterialKind]int, 3)
	for _, sp := range s.Spheres {
		counts[sp.Material]++
	}
	return counts
}
