// Package rigid provides a deterministic planar rigid-body solver.
//
// A [System] owns an arena of bodies, constraints and force generators and
// advances them with a fixed, externally supplied timestep:
//
//   - [RigidBody]: mass, inertia, pose, velocity and per-step accumulators
//   - [ForceGenerator]: adds forces/torques ([Gravity], [Friction], [Spring], [Damping])
//   - [Constraint]: pins body-local points ([Hinge] to the world, [Link] to another body)
//   - [System]: clears accumulators, applies generators, solves constraints, integrates
//
// Generators and constraints refer to bodies by [BodyID] and to constraints by
// [ConstraintID], never by pointer, so the arena stays the single owner of state.
//
// # Example
//
//	sys := rigid.NewSystem()
//	rod := sys.AddBody(rigid.NewRod(1.5, 1.0))
//	pin := sys.AddConstraint(&rigid.Hinge{Body: rod, Local: mgl64.Vec2{-1.5, 0}, Anchor: mgl64.Vec2{-2, 0}})
//	sys.AddForceGenerator(&rigid.Gravity{Body: rod, Acceleration: mgl64.Vec2{0, -10}})
//	sys.AddForceGenerator(&rigid.Friction{Body: rod, Constraint: pin, Coefficient: 0.025})
//	if err := sys.Initialize(); err != nil {
//	    return err
//	}
//	for {
//	    _ = sys.Process(1.0 / 60)
//	}
//
// # Step order
//
// Every call to [System.Process] runs accumulator reset, generators, constraint
// solve and integration, each in registration order. Friction reads the reaction
// force its constraint cached during the previous step, so the coupling lags by
// one step.
//
// # Thread Safety
//
// A System is NOT thread-safe. Independent systems may run on separate goroutines.
package rigid
