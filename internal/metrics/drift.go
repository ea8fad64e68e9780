package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/rigid"
)

// ConstraintDrift reports the worst constraint violation seen during a run.
type ConstraintDrift struct {
	name string
	max  float64
}

func NewConstraintDrift() *ConstraintDrift {
	return &ConstraintDrift{name: "constraint_drift"}
}

func (c *ConstraintDrift) Name() string { return c.name }

func (c *ConstraintDrift) Observe(s *rigid.System, t float64) {
	for _, con := range s.Constraints() {
		c.max = math.Max(c.max, con.Violation(s))
	}
}

func (c *ConstraintDrift) Value() float64 { return c.max }

func (c *ConstraintDrift) Reset() { c.max = 0 }
