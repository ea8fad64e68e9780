package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/rigid"
)

// TotalEnergy is kinetic plus potential energy in a uniform field g, with
// zero potential at the origin.
func TotalEnergy(s *rigid.System, g mgl64.Vec2) float64 {
	e := 0.0
	for i := 0; i < s.NumBodies(); i++ {
		b := s.Body(rigid.BodyID(i))
		e += b.KineticEnergy() - b.Mass*g.Dot(b.Position)
	}
	return e
}

// Energy reports the mean total energy over the run.
type Energy struct {
	name        string
	gravity     mgl64.Vec2
	samples     int
	totalEnergy float64
}

func NewEnergy(gravity mgl64.Vec2) *Energy {
	return &Energy{
		name:    "energy",
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s *rigid.System, t float64) {
	e.totalEnergy += TotalEnergy(s, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift reports the largest relative departure from the first
// observed total energy.
type EnergyDrift struct {
	name          string
	gravity       mgl64.Vec2
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(gravity mgl64.Vec2) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s *rigid.System, t float64) {
	energy := TotalEnergy(s, e.gravity)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
