package metrics

import (
	"github.com/san-kum/rigidsim/internal/rigid"
)

// Stability is the fraction of steps in which every body stayed under the
// speed and spin thresholds.
type Stability struct {
	name       string
	maxSpeed   float64
	maxSpin    float64
	violations int
	samples    int
}

func NewStability(maxSpeed, maxSpin float64) *Stability {
	return &Stability{
		name:     "stability",
		maxSpeed: maxSpeed,
		maxSpin:  maxSpin,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sys *rigid.System, t float64) {
	s.samples++
	for i := 0; i < sys.NumBodies(); i++ {
		b := sys.Body(rigid.BodyID(i))
		if !b.IsFinite() || b.Velocity.Len() > s.maxSpeed || abs(b.AngularVelocity) > s.maxSpin {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
