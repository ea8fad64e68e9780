package metrics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/sim"
)

// Defaults is the metric set attached to every CLI run.
func Defaults(gravity mgl64.Vec2) []sim.Metric {
	return []sim.Metric{
		NewEnergy(gravity),
		NewEnergyDrift(gravity),
		NewConstraintDrift(),
		NewStability(100, 100),
	}
}
