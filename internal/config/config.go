package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt             = 1.0 / 60
	DefaultDuration       = 20.0
	DefaultCorrectionGain = 0.2
	DefaultIterations     = 1
	DefaultDivergence     = 1e-2
	DefaultGravity        = -10.0
)

// Constraint kinds.
const (
	KindHinge = "hinge"
	KindLink  = "link"
)

// Generator kinds.
const (
	KindGravity  = "gravity"
	KindFriction = "friction"
	KindSpring   = "spring"
	KindDamping  = "damping"
)

// Config is a complete scenario: solver tuning, bodies, constraints,
// generators and scheduled kicks. Entities reference bodies and constraints
// by name; registration order follows list order.
type Config struct {
	Name        string             `yaml:"name"`
	Dt          float64            `yaml:"dt"`
	Duration    float64            `yaml:"duration"`
	Solver      SolverConfig       `yaml:"solver"`
	Bodies      []BodyConfig       `yaml:"bodies"`
	Constraints []ConstraintConfig `yaml:"constraints"`
	Generators  []GeneratorConfig  `yaml:"generators"`
	Kicks       []KickConfig       `yaml:"kicks,omitempty"`
}

type SolverConfig struct {
	CorrectionGain      float64 `yaml:"correction_gain"`
	Iterations          int     `yaml:"iterations"`
	DivergenceThreshold float64 `yaml:"divergence_threshold"`
}

// RodConfig derives mass and inertia the way the pendulum rods do:
// mass = density*2*half_length, inertia = mass*half_length^2.
type RodConfig struct {
	HalfLength float64 `yaml:"half_length"`
	Density    float64 `yaml:"density"`
}

type BodyConfig struct {
	Name            string     `yaml:"name"`
	Mass            float64    `yaml:"mass,omitempty"`
	Inertia         float64    `yaml:"inertia,omitempty"`
	Rod             *RodConfig `yaml:"rod,omitempty"`
	Position        mgl64.Vec2 `yaml:"position,flow"`
	Orientation     float64    `yaml:"orientation,omitempty"`
	Velocity        mgl64.Vec2 `yaml:"velocity,flow,omitempty"`
	AngularVelocity float64    `yaml:"angular_velocity,omitempty"`
}

// MassProperties resolves explicit mass/inertia, falling back to the rod shape.
func (b BodyConfig) MassProperties() (mass, inertia float64) {
	mass, inertia = b.Mass, b.Inertia
	if b.Rod != nil {
		rodMass := b.Rod.Density * b.Rod.HalfLength * 2
		if mass == 0 {
			mass = rodMass
		}
		if inertia == 0 {
			inertia = mass * b.Rod.HalfLength * b.Rod.HalfLength
		}
	}
	return mass, inertia
}

type ConstraintConfig struct {
	Name   string     `yaml:"name,omitempty"`
	Type   string     `yaml:"type"`
	Body   string     `yaml:"body"`
	Local  mgl64.Vec2 `yaml:"local,flow"`
	Anchor mgl64.Vec2 `yaml:"anchor,flow,omitempty"`
	// Other and OtherLocal are the second body of a link.
	Other      string     `yaml:"other,omitempty"`
	OtherLocal mgl64.Vec2 `yaml:"other_local,flow,omitempty"`
	Gain       float64    `yaml:"gain,omitempty"`
}

type GeneratorConfig struct {
	Type string `yaml:"type"`
	Body string `yaml:"body"`

	Acceleration mgl64.Vec2 `yaml:"acceleration,flow,omitempty"`

	Constraint  string  `yaml:"constraint,omitempty"`
	Coefficient float64 `yaml:"coefficient,omitempty"`

	// Spring: Other empty pins Anchor in world space.
	Other      string     `yaml:"other,omitempty"`
	Local      mgl64.Vec2 `yaml:"local,flow,omitempty"`
	Anchor     mgl64.Vec2 `yaml:"anchor,flow,omitempty"`
	RestLength float64    `yaml:"rest_length,omitempty"`
	Stiffness  float64    `yaml:"stiffness,omitempty"`
	Damping    float64    `yaml:"damping,omitempty"`

	// Damping generator.
	Linear  float64 `yaml:"linear,omitempty"`
	Angular float64 `yaml:"angular,omitempty"`
}

type KickConfig struct {
	Step            int     `yaml:"step"`
	Body            string  `yaml:"body"`
	AngularVelocity float64 `yaml:"angular_velocity"`
}

func DefaultSolver() SolverConfig {
	return SolverConfig{
		CorrectionGain:      DefaultCorrectionGain,
		Iterations:          DefaultIterations,
		DivergenceThreshold: DefaultDivergence,
	}
}

// DefaultConfig is the single hinged rod.
func DefaultConfig() *Config {
	return SinglePendulum()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Dt: DefaultDt, Duration: DefaultDuration, Solver: DefaultSolver()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the scenario is well formed before it is built. Physical
// checks (positive mass, ...) are left to rigid.System.Initialize.
func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("dt must be positive, got %f", c.Dt))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %f", c.Duration))
	}

	bodies := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("body %d: missing name", i))
			continue
		}
		if bodies[b.Name] {
			errs = append(errs, fmt.Errorf("body %d: duplicate name %q", i, b.Name))
		}
		bodies[b.Name] = true
	}

	constraints := make(map[string]bool, len(c.Constraints))
	for i, con := range c.Constraints {
		switch con.Type {
		case KindHinge:
		case KindLink:
			if con.Other == "" {
				errs = append(errs, fmt.Errorf("constraint %d: link needs other", i))
			}
		default:
			errs = append(errs, fmt.Errorf("constraint %d: unknown type %q", i, con.Type))
		}
		if con.Name != "" {
			if constraints[con.Name] {
				errs = append(errs, fmt.Errorf("constraint %d: duplicate name %q", i, con.Name))
			}
			constraints[con.Name] = true
		}
	}

	for i, g := range c.Generators {
		switch g.Type {
		case KindGravity, KindSpring, KindDamping:
		case KindFriction:
			if g.Constraint == "" {
				errs = append(errs, fmt.Errorf("generator %d: friction needs a constraint", i))
			}
		default:
			errs = append(errs, fmt.Errorf("generator %d: unknown type %q", i, g.Type))
		}
	}

	for i, k := range c.Kicks {
		if k.Step < 0 {
			errs = append(errs, fmt.Errorf("kick %d: negative step", i))
		}
	}

	return errors.Join(errs...)
}

// Steps is the number of fixed steps the scenario runs for.
func (c *Config) Steps() int {
	return int(c.Duration/c.Dt + 1e-9)
}
