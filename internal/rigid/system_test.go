package rigid_test

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/rigid"
)

const dt = 1.0 / 60

var anchor = mgl64.Vec2{-2.0, 0.0}

// pendulum builds the single rod from the double-pendulum scene: r = 1.5,
// density 1, hinged at its left end to (-2, 0), lying horizontal at rest.
func pendulum(gravity bool, friction float64, opts ...rigid.Option) (*rigid.System, rigid.BodyID, rigid.ConstraintID) {
	const r = 1.5
	sys := rigid.NewSystem(opts...)

	rod := rigid.NewRod(r, 1.0)
	rod.Position = mgl64.Vec2{-2.0 + r, 0}
	id := sys.AddBody(rod)

	pin := sys.AddConstraint(&rigid.Hinge{Body: id, Local: mgl64.Vec2{-r, 0}, Anchor: anchor})
	if gravity {
		sys.AddForceGenerator(&rigid.Gravity{Body: id, Acceleration: mgl64.Vec2{0, -10}})
	}
	if friction > 0 {
		sys.AddForceGenerator(&rigid.Friction{Body: id, Constraint: pin, Coefficient: friction})
	}
	return sys, id, pin
}

func hingeError(sys *rigid.System, id rigid.BodyID) float64 {
	return sys.Body(id).LocalToWorld(mgl64.Vec2{-1.5, 0}).Sub(anchor).Len()
}

// swingPeaks returns |theta - theta_eq| at every turning point of the swing.
func swingPeaks(sys *rigid.System, id rigid.BodyID, steps, limit int) []float64 {
	eq := -math.Pi / 2
	var peaks []float64
	prev := sys.Body(id).AngularVelocity
	for i := 0; i < steps && len(peaks) < limit; i++ {
		Expect(sys.Process(dt)).To(Succeed())
		w := sys.Body(id).AngularVelocity
		if prev != 0 && math.Signbit(prev) != math.Signbit(w) {
			peaks = append(peaks, math.Abs(sys.Body(id).Orientation-eq))
		}
		prev = w
	}
	return peaks
}

var _ = Describe("System", func() {
	Describe("lifecycle", func() {
		It("refuses to step before Initialize", func() {
			sys, _, _ := pendulum(true, 0)
			Expect(sys.Process(dt)).To(MatchError(rigid.ErrNotInitialized))
		})

		It("initializes exactly once", func() {
			sys, _, _ := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())
			Expect(sys.Initialize()).To(MatchError(rigid.ErrAlreadyInitialized))
		})

		It("rejects a non-positive timestep", func() {
			sys, _, _ := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())
			Expect(errors.Is(sys.Process(0), rigid.ErrInvalidTimestep)).To(BeTrue())
			Expect(errors.Is(sys.Process(-dt), rigid.ErrInvalidTimestep)).To(BeTrue())
			Expect(errors.Is(sys.Process(math.NaN()), rigid.ErrInvalidTimestep)).To(BeTrue())
		})

		It("panics when bodies are added after Initialize", func() {
			sys, _, _ := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())
			Expect(func() { sys.AddBody(rigid.NewBody(1, 1)) }).To(Panic())
		})
	})

	Describe("configuration validation", func() {
		It("reports a constraint on an unregistered body", func() {
			sys := rigid.NewSystem()
			sys.AddBody(rigid.NewBody(1, 1))
			sys.AddConstraint(&rigid.Hinge{Body: 5, Local: mgl64.Vec2{1, 0}})

			err := sys.Initialize()
			Expect(errors.Is(err, rigid.ErrConfiguration)).To(BeTrue())
			Expect(errors.Is(err, rigid.ErrUnknownBody)).To(BeTrue())

			var cfgErr *rigid.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Kind).To(Equal(rigid.KindConstraint))
			Expect(cfgErr.Index).To(Equal(0))
		})

		It("reports a generator on an unregistered body", func() {
			sys := rigid.NewSystem()
			sys.AddForceGenerator(&rigid.Gravity{Body: 0, Acceleration: mgl64.Vec2{0, -10}})
			Expect(errors.Is(sys.Initialize(), rigid.ErrUnknownBody)).To(BeTrue())
		})

		It("reports a zero-mass body", func() {
			sys := rigid.NewSystem()
			sys.AddBody(rigid.NewBody(0, 1))
			err := sys.Initialize()
			Expect(errors.Is(err, rigid.ErrConfiguration)).To(BeTrue())
			Expect(errors.Is(err, rigid.ErrNonPositiveMass)).To(BeTrue())
		})

		It("reports a non-positive inertia", func() {
			sys := rigid.NewSystem()
			sys.AddBody(rigid.NewBody(1, -2))
			Expect(errors.Is(sys.Initialize(), rigid.ErrNonPositiveInertia)).To(BeTrue())
		})

		It("reports friction tied to a missing constraint", func() {
			sys := rigid.NewSystem()
			id := sys.AddBody(rigid.NewBody(1, 1))
			sys.AddForceGenerator(&rigid.Friction{Body: id, Constraint: 3, Coefficient: 0.1})
			Expect(errors.Is(sys.Initialize(), rigid.ErrUnknownConstraint)).To(BeTrue())
		})

		It("reports every problem, not only the first", func() {
			sys := rigid.NewSystem()
			sys.AddBody(rigid.NewBody(0, 1))
			sys.AddBody(rigid.NewBody(1, 0))
			sys.AddConstraint(&rigid.Hinge{Body: 9})

			err := sys.Initialize()
			Expect(errors.Is(err, rigid.ErrNonPositiveMass)).To(BeTrue())
			Expect(errors.Is(err, rigid.ErrNonPositiveInertia)).To(BeTrue())
			Expect(errors.Is(err, rigid.ErrUnknownBody)).To(BeTrue())
		})

		It("rejects a link between a body and itself", func() {
			sys := rigid.NewSystem()
			id := sys.AddBody(rigid.NewBody(1, 1))
			sys.AddConstraint(&rigid.Link{BodyA: id, BodyB: id})
			Expect(errors.Is(sys.Initialize(), rigid.ErrDegenerateConstraint)).To(BeTrue())
		})

		It("rejects an out-of-range correction gain", func() {
			cfg := rigid.DefaultSolverConfig()
			cfg.CorrectionGain = 0
			sys, _, _ := pendulum(true, 0, rigid.WithSolverConfig(cfg))
			Expect(errors.Is(sys.Initialize(), rigid.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("single hinged rod", func() {
		It("starts swinging from rest while the hinge holds", func() {
			sys, id, pin := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())
			Expect(sys.Process(dt)).To(Succeed())

			Expect(sys.Body(id).AngularVelocity).NotTo(BeZero())
			Expect(sys.Body(id).AngularVelocity).To(BeNumerically("<", 0))
			Expect(hingeError(sys, id)).To(BeNumerically("<", 1e-3))

			// a horizontal rod about its end carries half its weight at the pin
			Expect(sys.Reaction(pin)[1]).To(BeNumerically("~", 15.0, 1e-4))
		})

		It("keeps the pin within tolerance for 10000 steps without other forces", func() {
			sys, id, _ := pendulum(false, 0)
			sys.Body(id).AngularVelocity = 3.0
			Expect(sys.Initialize()).To(Succeed())

			worst := 0.0
			for i := 0; i < 10000; i++ {
				Expect(sys.Process(dt)).To(Succeed())
				worst = math.Max(worst, hingeError(sys, id))
			}
			Expect(worst).To(BeNumerically("<", 1e-3))
			Expect(sys.Diagnostics().DivergentSteps).To(BeZero())
		})

		It("keeps the pin within tolerance for 10000 steps under gravity", func() {
			sys, id, _ := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())

			for i := 0; i < 10000; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			Expect(sys.Diagnostics().MaxViolation).To(BeNumerically("<", 1e-3))
			Expect(hingeError(sys, id)).To(BeNumerically("<", 1e-3))
		})

		It("does not gain amplitude without friction", func() {
			sys, id, _ := pendulum(true, 0)
			Expect(sys.Initialize()).To(Succeed())

			peaks := swingPeaks(sys, id, 3000, 12)
			Expect(len(peaks)).To(BeNumerically(">=", 6))
			for _, p := range peaks {
				Expect(p).To(BeNumerically("<=", peaks[0]+1e-2))
			}
		})

		It("loses amplitude on every swing with friction", func() {
			sys, id, _ := pendulum(true, 0.02)
			Expect(sys.Initialize()).To(Succeed())

			peaks := swingPeaks(sys, id, 3000, 8)
			Expect(len(peaks)).To(BeNumerically(">=", 4))
			for i := 1; i < len(peaks); i++ {
				Expect(peaks[i]).To(BeNumerically("<", peaks[i-1]))
			}
			Expect(peaks[len(peaks)-1]).To(BeNumerically("<", math.Pi/2))
		})

		It("accepts an external spin between steps", func() {
			sys, id, _ := pendulum(false, 0)
			Expect(sys.Initialize()).To(Succeed())
			Expect(sys.Process(dt)).To(Succeed())
			Expect(sys.Body(id).AngularVelocity).To(BeZero())

			sys.Body(id).AngularVelocity = 1
			Expect(sys.Process(dt)).To(Succeed())
			Expect(sys.Body(id).Orientation).To(BeNumerically(">", 0))
		})
	})

	Describe("determinism", func() {
		run := func() [][]rigid.BodyState {
			sys, _, _ := pendulum(true, 0.025)
			Expect(sys.Initialize()).To(Succeed())
			var out [][]rigid.BodyState
			for i := 0; i < 500; i++ {
				Expect(sys.Process(dt)).To(Succeed())
				out = append(out, sys.Snapshot())
			}
			return out
		}

		It("reproduces identical state sequences", func() {
			a, b := run(), run()
			Expect(a).To(HaveLen(len(b)))
			for i := range a {
				Expect(a[i]).To(Equal(b[i]))
			}
		})
	})

	Describe("reaction force", func() {
		It("computes without touching the accumulators and matches the cached reaction", func() {
			sys, id, pin := pendulum(false, 0)
			sys.Body(id).AngularVelocity = 2
			Expect(sys.Initialize()).To(Succeed())

			hinge := sys.Constraint(pin).(*rigid.Hinge)
			f, rotational := hinge.ComputeReactionForce(sys, dt)
			Expect(rotational).To(BeTrue())
			Expect(f.X()).To(BeNumerically("<", 0))
			Expect(sys.Body(id).Force()).To(Equal(mgl64.Vec2{}))
			Expect(sys.Body(id).Torque()).To(BeZero())

			Expect(sys.Process(dt)).To(Succeed())
			Expect(sys.Reaction(pin)).To(Equal(f))
		})
	})

	Describe("mass scale", func() {
		swing := func(density float64) float64 {
			sys := rigid.NewSystem()
			rod := rigid.NewRod(1.5, density)
			rod.Position = mgl64.Vec2{-0.5, 0}
			id := sys.AddBody(rod)
			sys.AddConstraint(&rigid.Hinge{Body: id, Local: mgl64.Vec2{-1.5, 0}, Anchor: anchor})
			sys.AddForceGenerator(&rigid.Gravity{Body: id, Acceleration: mgl64.Vec2{0, -10}})
			Expect(sys.Initialize()).To(Succeed())
			for i := 0; i < 60; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			return sys.Body(id).Orientation
		}

		It("swings a heavy rod exactly like a light one", func() {
			light := swing(1)
			Expect(light).To(BeNumerically("<", -1))
			for _, density := range []float64{1e5, 1e6, 1e7} {
				Expect(swing(density)).To(BeNumerically("~", light, 1e-9), "density %g", density)
			}
		})

		It("keeps rotational coupling for a heavy hinged rod", func() {
			sys := rigid.NewSystem()
			rod := rigid.NewRod(1.5, 1e6)
			rod.Position = mgl64.Vec2{-0.5, 0}
			id := sys.AddBody(rod)
			pin := sys.AddConstraint(&rigid.Hinge{Body: id, Local: mgl64.Vec2{-1.5, 0}, Anchor: anchor})
			Expect(sys.Initialize()).To(Succeed())

			_, rotational := sys.Constraint(pin).(*rigid.Hinge).ComputeReactionForce(sys, dt)
			Expect(rotational).To(BeTrue())
		})
	})

	Describe("degenerate attachment", func() {
		It("locks translation when pinned at the center of mass", func() {
			sys := rigid.NewSystem()
			b := rigid.NewBody(2, 1)
			b.Position = mgl64.Vec2{1, 1}
			b.AngularVelocity = 2
			id := sys.AddBody(b)
			sys.AddConstraint(&rigid.Hinge{Body: id, Anchor: mgl64.Vec2{1, 1}})
			sys.AddForceGenerator(&rigid.Gravity{Body: id, Acceleration: mgl64.Vec2{0, -10}})
			Expect(sys.Initialize()).To(Succeed())

			for i := 0; i < 600; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			Expect(sys.Body(id).Position.Sub(mgl64.Vec2{1, 1}).Len()).To(BeNumerically("<", 1e-9))
			Expect(sys.Body(id).AngularVelocity).To(BeNumerically("~", 2, 1e-12))
		})
	})

	Describe("linked chain", func() {
		It("holds both joints of a double pendulum", func() {
			cfg := rigid.DefaultSolverConfig()
			cfg.Iterations = 30
			sys := rigid.NewSystem(rigid.WithSolverConfig(cfg))

			upper := rigid.NewRod(1.0, 1.0)
			upper.Position = mgl64.Vec2{1, 0}
			lower := rigid.NewRod(1.0, 1.0)
			lower.Position = mgl64.Vec2{3, 0}
			a := sys.AddBody(upper)
			b := sys.AddBody(lower)

			sys.AddConstraint(&rigid.Hinge{Body: a, Local: mgl64.Vec2{-1, 0}})
			sys.AddConstraint(&rigid.Link{BodyA: a, BodyB: b, LocalA: mgl64.Vec2{1, 0}, LocalB: mgl64.Vec2{-1, 0}})
			sys.AddForceGenerator(&rigid.Gravity{Body: a, Acceleration: mgl64.Vec2{0, -10}})
			sys.AddForceGenerator(&rigid.Gravity{Body: b, Acceleration: mgl64.Vec2{0, -10}})
			Expect(sys.Initialize()).To(Succeed())

			for i := 0; i < 600; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			for _, c := range sys.Constraints() {
				Expect(c.Violation(sys)).To(BeNumerically("<", 5e-3))
			}
		})
	})

	Describe("spring", func() {
		It("conserves linear momentum between two free bodies", func() {
			sys := rigid.NewSystem()
			left := rigid.NewBody(1, 0.1)
			right := rigid.NewBody(3, 0.3)
			right.Position = mgl64.Vec2{2, 0.5}
			right.Velocity = mgl64.Vec2{0, 1}
			a := sys.AddBody(left)
			b := sys.AddBody(right)
			sys.AddForceGenerator(&rigid.Spring{
				BodyA: a, BodyB: b,
				AnchorA: mgl64.Vec2{0.1, 0}, AnchorB: mgl64.Vec2{-0.1, 0},
				RestLength: 1, Stiffness: 20, Damping: 0.5,
			})
			Expect(sys.Initialize()).To(Succeed())

			momentum := func() mgl64.Vec2 {
				return sys.Body(a).Velocity.Mul(sys.Body(a).Mass).Add(sys.Body(b).Velocity.Mul(sys.Body(b).Mass))
			}
			start := momentum()
			for i := 0; i < 1000; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			Expect(momentum().Sub(start).Len()).To(BeNumerically("<", 1e-9))
		})
	})

	Describe("damping", func() {
		It("bleeds kinetic energy", func() {
			sys := rigid.NewSystem()
			b := rigid.NewBody(1, 1)
			b.Velocity = mgl64.Vec2{2, 0}
			b.AngularVelocity = 3
			id := sys.AddBody(b)
			sys.AddForceGenerator(&rigid.Damping{Body: id, Linear: 0.5, Angular: 0.5})
			Expect(sys.Initialize()).To(Succeed())

			before := sys.KineticEnergy()
			for i := 0; i < 60; i++ {
				Expect(sys.Process(dt)).To(Succeed())
			}
			Expect(sys.KineticEnergy()).To(BeNumerically("<", before))
		})
	})

	Describe("divergence diagnostics", func() {
		It("counts drift above the threshold without aborting", func() {
			sys, id, _ := pendulum(false, 0)
			sys.Body(id).Position = mgl64.Vec2{5, 5}
			Expect(sys.Initialize()).To(Succeed())

			Expect(sys.Process(dt)).To(Succeed())
			Expect(sys.Diagnostics().DivergentSteps).To(Equal(1))
			Expect(sys.Diagnostics().MaxViolation).To(BeNumerically(">", 1e-2))
		})
	})
})
