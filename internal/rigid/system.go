package rigid

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// SolverConfig tunes the constraint pass.
type SolverConfig struct {
	// CorrectionGain is the fraction of positional drift removed per step, in (0, 1].
	CorrectionGain float64
	// Iterations is the number of Gauss-Seidel sweeps over the constraints.
	// One sweep is the plain single pass.
	Iterations int
	// DivergenceThreshold is the constraint violation above which a step is
	// counted as diverging.
	DivergenceThreshold float64
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		CorrectionGain:      0.2,
		Iterations:          1,
		DivergenceThreshold: 1e-2,
	}
}

// Diagnostics collects soft numerical-divergence signals. They never stop a run.
type Diagnostics struct {
	DivergentSteps int     `json:"divergent_steps"`
	NonFiniteSteps int     `json:"non_finite_steps"`
	MaxViolation   float64 `json:"max_violation"`
	LastViolation  float64 `json:"last_violation"`
}

type Option func(*System)

func WithLogger(l *zap.Logger) Option {
	return func(s *System) { s.logger = l }
}

func WithSolverConfig(cfg SolverConfig) Option {
	return func(s *System) { s.cfg = cfg }
}

type phase int

const (
	phaseUninitialized phase = iota
	phaseInitialized
	phaseStepping
)

// validator is implemented by entities with checks beyond body references.
type validator interface {
	validate(s *System) error
}

// System owns the body, constraint and generator arenas and steps them.
type System struct {
	bodies      []RigidBody
	constraints []Constraint
	generators  []ForceGenerator
	reactions   []mgl64.Vec2

	cfg    SolverConfig
	logger *zap.Logger

	phase phase
	steps int
	time  float64
	diag  Diagnostics
}

func NewSystem(opts ...Option) *System {
	s := &System{
		cfg:    DefaultSolverConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddBody copies b into the arena. Pointers returned by Body stay valid
// until the next AddBody call.
func (s *System) AddBody(b *RigidBody) BodyID {
	s.mustBeOpen("AddBody")
	s.bodies = append(s.bodies, *b)
	return BodyID(len(s.bodies) - 1)
}

func (s *System) AddConstraint(c Constraint) ConstraintID {
	s.mustBeOpen("AddConstraint")
	s.constraints = append(s.constraints, c)
	return ConstraintID(len(s.constraints) - 1)
}

func (s *System) AddForceGenerator(g ForceGenerator) {
	s.mustBeOpen("AddForceGenerator")
	s.generators = append(s.generators, g)
}

func (s *System) mustBeOpen(op string) {
	if s.phase != phaseUninitialized {
		panic("rigid: " + op + " after Initialize")
	}
}

func (s *System) Body(id BodyID) *RigidBody { return &s.bodies[id] }
func (s *System) NumBodies() int            { return len(s.bodies) }

func (s *System) Constraint(id ConstraintID) Constraint { return s.constraints[id] }
func (s *System) Constraints() []Constraint             { return s.constraints }
func (s *System) ForceGenerators() []ForceGenerator     { return s.generators }

// Reaction returns the force constraint id applied on its first body during
// the most recent step, or zero before the first step.
func (s *System) Reaction(id ConstraintID) mgl64.Vec2 {
	if int(id) >= len(s.reactions) || id < 0 {
		return mgl64.Vec2{}
	}
	return s.reactions[id]
}

func (s *System) Config() SolverConfig     { return s.cfg }
func (s *System) Diagnostics() Diagnostics { return s.diag }
func (s *System) Steps() int               { return s.steps }
func (s *System) Time() float64            { return s.time }
func (s *System) Initialized() bool        { return s.phase != phaseUninitialized }

func (s *System) gain(override float64) float64 {
	if override > 0 {
		return override
	}
	return s.cfg.CorrectionGain
}

// Initialize validates the configuration and locks the arenas. Every problem
// found is reported; each wraps ErrConfiguration.
func (s *System) Initialize() error {
	if s.phase != phaseUninitialized {
		return ErrAlreadyInitialized
	}

	var errs []error
	if !(s.cfg.CorrectionGain > 0 && s.cfg.CorrectionGain <= 1) || s.cfg.Iterations < 1 || !(s.cfg.DivergenceThreshold > 0) {
		errs = append(errs, fmt.Errorf("%w: solver %+v: %w", ErrConfiguration, s.cfg, ErrInvalidParameter))
	}
	for i := range s.bodies {
		if err := validateBody(&s.bodies[i]); err != nil {
			errs = append(errs, &ConfigurationError{Kind: KindBody, Index: i, Err: err})
		}
	}
	for i, c := range s.constraints {
		if err := s.checkEntity(c.Bodies(), c); err != nil {
			errs = append(errs, &ConfigurationError{Kind: KindConstraint, Index: i, Err: err})
		}
	}
	for i, g := range s.generators {
		if err := s.checkEntity(g.Bodies(), g); err != nil {
			errs = append(errs, &ConfigurationError{Kind: KindGenerator, Index: i, Err: err})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.reactions = make([]mgl64.Vec2, len(s.constraints))
	s.phase = phaseInitialized

	s.logger.Debug("rigid system initialized",
		zap.Int("bodies", len(s.bodies)),
		zap.Int("constraints", len(s.constraints)),
		zap.Int("generators", len(s.generators)),
		zap.Float64("correction_gain", s.cfg.CorrectionGain),
		zap.Int("iterations", s.cfg.Iterations),
	)
	return nil
}

func (s *System) checkEntity(refs []BodyID, entity any) error {
	for _, id := range refs {
		if id < 0 || int(id) >= len(s.bodies) {
			return fmt.Errorf("%w: %d", ErrUnknownBody, id)
		}
	}
	if v, ok := entity.(validator); ok {
		return v.validate(s)
	}
	return nil
}

// Process advances the system by dt: reset accumulators, apply generators,
// solve constraints, integrate, each in registration order.
func (s *System) Process(dt float64) error {
	if s.phase == phaseUninitialized {
		return ErrNotInitialized
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidTimestep, dt)
	}
	s.phase = phaseStepping

	for i := range s.bodies {
		s.bodies[i].ClearAccumulators()
	}

	for _, g := range s.generators {
		g.Apply(s, dt)
	}

	// Reactions from the previous step have been read by the generators above.
	for i := range s.reactions {
		s.reactions[i] = mgl64.Vec2{}
	}
	for it := 0; it < s.cfg.Iterations; it++ {
		for i, c := range s.constraints {
			s.reactions[i] = s.reactions[i].Add(c.Solve(s, dt))
		}
	}

	for i := range s.bodies {
		s.bodies[i].Integrate(dt)
	}

	s.steps++
	s.time += dt
	s.diagnose()
	return nil
}

func (s *System) diagnose() {
	worst := 0.0
	for _, c := range s.constraints {
		v := c.Violation(s)
		if math.IsNaN(v) || v > worst {
			worst = v
		}
	}
	s.diag.LastViolation = worst
	if worst > s.diag.MaxViolation || math.IsNaN(worst) {
		s.diag.MaxViolation = worst
	}

	finite := true
	for i := range s.bodies {
		if !s.bodies[i].IsFinite() {
			finite = false
			break
		}
	}

	switch {
	case !finite:
		s.diag.NonFiniteSteps++
		s.diag.DivergentSteps++
		s.logger.Warn("rigid body state not finite", zap.Int("step", s.steps), zap.Float64("time", s.time))
	case math.IsNaN(worst) || worst > s.cfg.DivergenceThreshold:
		s.diag.DivergentSteps++
		s.logger.Warn("constraint drift above threshold",
			zap.Int("step", s.steps),
			zap.Float64("violation", worst),
			zap.Float64("threshold", s.cfg.DivergenceThreshold),
		)
	}
}

// Snapshot copies the state of every body in registration order.
func (s *System) Snapshot() []BodyState {
	out := make([]BodyState, len(s.bodies))
	for i := range s.bodies {
		out[i] = s.bodies[i].State()
	}
	return out
}

// KineticEnergy sums the kinetic energy of all bodies.
func (s *System) KineticEnergy() float64 {
	e := 0.0
	for i := range s.bodies {
		e += s.bodies[i].KineticEnergy()
	}
	return e
}
