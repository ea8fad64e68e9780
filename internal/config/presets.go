package config

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

var down = mgl64.Vec2{0, DefaultGravity}

// Presets builds a fresh copy of each named scenario on every call.
var Presets = map[string]func() *Config{
	"single_pendulum": SinglePendulum,
	"double_pendulum": DoublePendulum,
	"chain":           Chain,
	"spring_pair":     SpringPair,
}

// SinglePendulum is one rod (r = 1.5, density 1) hinged at (-2, 0),
// released horizontal.
func SinglePendulum() *Config {
	return &Config{
		Name:     "single_pendulum",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Solver:   DefaultSolver(),
		Bodies: []BodyConfig{
			{Name: "rod", Rod: &RodConfig{HalfLength: 1.5, Density: 1}, Position: mgl64.Vec2{-0.5, 0}},
		},
		Constraints: []ConstraintConfig{
			{Name: "pin", Type: KindHinge, Body: "rod", Local: mgl64.Vec2{-1.5, 0}, Anchor: mgl64.Vec2{-2, 0}},
		},
		Generators: []GeneratorConfig{
			{Type: KindGravity, Body: "rod", Acceleration: down},
		},
	}
}

// DoublePendulum is the two-rod bench scene: rods of half length 1.5 and
// 2.5 hinged at (-2, 0) and (2, 0), friction on the first hinge, and a
// spin-up kick on the second rod after one second.
func DoublePendulum() *Config {
	return &Config{
		Name:     "double_pendulum",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Solver:   DefaultSolver(),
		Bodies: []BodyConfig{
			{Name: "rod0", Rod: &RodConfig{HalfLength: 1.5, Density: 1}, Position: mgl64.Vec2{-2 + 1.5, 0}},
			{Name: "rod1", Rod: &RodConfig{HalfLength: 2.5, Density: 1}, Position: mgl64.Vec2{2 + 2.5, 0}},
		},
		Constraints: []ConstraintConfig{
			{Name: "c0", Type: KindHinge, Body: "rod0", Local: mgl64.Vec2{-1.5, 0}, Anchor: mgl64.Vec2{-2, 0}},
			{Name: "c1", Type: KindHinge, Body: "rod1", Local: mgl64.Vec2{-2.5, 0}, Anchor: mgl64.Vec2{2, 0}},
		},
		Generators: []GeneratorConfig{
			{Type: KindGravity, Body: "rod0", Acceleration: down},
			{Type: KindGravity, Body: "rod1", Acceleration: down},
			{Type: KindFriction, Body: "rod0", Constraint: "c0", Coefficient: 0.025},
		},
		Kicks: []KickConfig{
			{Step: 60, Body: "rod1", AngularVelocity: 1},
		},
	}
}

// Chain links two unit rods end to end below a world hinge.
func Chain() *Config {
	solver := DefaultSolver()
	solver.Iterations = 20
	return &Config{
		Name:     "chain",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Solver:   solver,
		Bodies: []BodyConfig{
			{Name: "upper", Rod: &RodConfig{HalfLength: 1, Density: 1}, Position: mgl64.Vec2{1, 0}},
			{Name: "lower", Rod: &RodConfig{HalfLength: 1, Density: 1}, Position: mgl64.Vec2{3, 0}},
		},
		Constraints: []ConstraintConfig{
			{Name: "shoulder", Type: KindHinge, Body: "upper", Local: mgl64.Vec2{-1, 0}},
			{Name: "elbow", Type: KindLink, Body: "upper", Local: mgl64.Vec2{1, 0}, Other: "lower", OtherLocal: mgl64.Vec2{-1, 0}},
		},
		Generators: []GeneratorConfig{
			{Type: KindGravity, Body: "upper", Acceleration: down},
			{Type: KindGravity, Body: "lower", Acceleration: down},
			{Type: KindFriction, Body: "upper", Constraint: "shoulder", Coefficient: 0.01},
		},
	}
}

// SpringPair hangs a block from a world spring and couples a second block to it.
func SpringPair() *Config {
	return &Config{
		Name:     "spring_pair",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Solver:   DefaultSolver(),
		Bodies: []BodyConfig{
			{Name: "top", Mass: 1, Inertia: 0.1, Position: mgl64.Vec2{0, -1}},
			{Name: "bottom", Mass: 2, Inertia: 0.2, Position: mgl64.Vec2{0.3, -2}},
		},
		Generators: []GeneratorConfig{
			{Type: KindGravity, Body: "top", Acceleration: down},
			{Type: KindGravity, Body: "bottom", Acceleration: down},
			{Type: KindSpring, Body: "top", Anchor: mgl64.Vec2{0, 0}, RestLength: 1, Stiffness: 60, Damping: 0.5},
			{Type: KindSpring, Body: "top", Other: "bottom", RestLength: 1, Stiffness: 80, Damping: 0.5},
			{Type: KindDamping, Body: "bottom", Linear: 0.05, Angular: 0.05},
		},
	}
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
