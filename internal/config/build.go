package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/rigid"
	"github.com/san-kum/rigidsim/internal/sim"
)

// Scene maps scenario names onto the arena indices of a built system.
type Scene struct {
	Bodies      map[string]rigid.BodyID
	BodyNames   []string
	Constraints map[string]rigid.ConstraintID
	Kicks       []sim.Kick
}

// Build validates cfg and registers its entities in list order on a new
// system. The system is returned uninitialized.
func Build(cfg *Config, logger *zap.Logger) (*rigid.System, *Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sys := rigid.NewSystem(
		rigid.WithLogger(logger.With(zap.String("scenario", cfg.Name))),
		rigid.WithSolverConfig(rigid.SolverConfig{
			CorrectionGain:      cfg.Solver.CorrectionGain,
			Iterations:          cfg.Solver.Iterations,
			DivergenceThreshold: cfg.Solver.DivergenceThreshold,
		}),
	)
	scene := &Scene{
		Bodies:      make(map[string]rigid.BodyID, len(cfg.Bodies)),
		BodyNames:   make([]string, 0, len(cfg.Bodies)),
		Constraints: make(map[string]rigid.ConstraintID, len(cfg.Constraints)),
	}

	for _, bc := range cfg.Bodies {
		mass, inertia := bc.MassProperties()
		b := rigid.NewBody(mass, inertia)
		b.Position = bc.Position
		b.Orientation = bc.Orientation
		b.Velocity = bc.Velocity
		b.AngularVelocity = bc.AngularVelocity
		scene.Bodies[bc.Name] = sys.AddBody(b)
		scene.BodyNames = append(scene.BodyNames, bc.Name)
	}

	body := func(name string) (rigid.BodyID, error) {
		id, ok := scene.Bodies[name]
		if !ok {
			return rigid.NoBody, fmt.Errorf("%w: %q", rigid.ErrUnknownBody, name)
		}
		return id, nil
	}

	for i, cc := range cfg.Constraints {
		a, err := body(cc.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		var c rigid.Constraint
		switch cc.Type {
		case KindHinge:
			c = &rigid.Hinge{Body: a, Local: cc.Local, Anchor: cc.Anchor, Gain: cc.Gain}
		case KindLink:
			b, err := body(cc.Other)
			if err != nil {
				return nil, nil, fmt.Errorf("constraint %d: %w", i, err)
			}
			c = &rigid.Link{BodyA: a, BodyB: b, LocalA: cc.Local, LocalB: cc.OtherLocal, Gain: cc.Gain}
		}
		id := sys.AddConstraint(c)
		if cc.Name != "" {
			scene.Constraints[cc.Name] = id
		}
	}

	for i, gc := range cfg.Generators {
		a, err := body(gc.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("generator %d: %w", i, err)
		}
		switch gc.Type {
		case KindGravity:
			sys.AddForceGenerator(&rigid.Gravity{Body: a, Acceleration: gc.Acceleration})
		case KindFriction:
			cid, ok := scene.Constraints[gc.Constraint]
			if !ok {
				return nil, nil, fmt.Errorf("generator %d: %w: %q", i, rigid.ErrUnknownConstraint, gc.Constraint)
			}
			sys.AddForceGenerator(&rigid.Friction{Body: a, Constraint: cid, Coefficient: gc.Coefficient})
		case KindSpring:
			other := rigid.NoBody
			if gc.Other != "" {
				if other, err = body(gc.Other); err != nil {
					return nil, nil, fmt.Errorf("generator %d: %w", i, err)
				}
			}
			sys.AddForceGenerator(&rigid.Spring{
				BodyA: a, BodyB: other,
				AnchorA: gc.Local, AnchorB: gc.Anchor,
				RestLength: gc.RestLength, Stiffness: gc.Stiffness, Damping: gc.Damping,
			})
		case KindDamping:
			sys.AddForceGenerator(&rigid.Damping{Body: a, Linear: gc.Linear, Angular: gc.Angular})
		}
	}

	for i, kc := range cfg.Kicks {
		id, err := body(kc.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("kick %d: %w", i, err)
		}
		scene.Kicks = append(scene.Kicks, sim.Kick{Step: kc.Step, Body: id, AngularVelocity: kc.AngularVelocity})
	}

	return sys, scene, nil
}

// SimConfig is the run configuration the scenario implies.
func (c *Config) SimConfig(scene *Scene) sim.Config {
	return sim.Config{
		Dt:       c.Dt,
		Duration: c.Duration,
		Kicks:    scene.Kicks,
	}
}
