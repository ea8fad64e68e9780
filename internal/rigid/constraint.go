package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ConstraintID indexes a constraint in its System's arena.
type ConstraintID int

// Constraint holds a geometric relation between bodies.
//
// Solve computes the force needed for the relation to hold at the end of the
// coming integration, applies it through the bodies' accumulators and returns
// it. The force returned is the one acting on the first body; a second body
// receives the opposite.
type Constraint interface {
	Solve(s *System, dt float64) mgl64.Vec2
	Violation(s *System) float64
	Bodies() []BodyID
}

const degenerateEpsilon = 1e-12

// Hinge pins the body-local point Local to the fixed world point Anchor.
type Hinge struct {
	Body   BodyID
	Local  mgl64.Vec2
	Anchor mgl64.Vec2

	// Gain is the fraction of the current drift removed per step.
	// Zero selects the system default.
	Gain float64
}

func (h *Hinge) Bodies() []BodyID { return []BodyID{h.Body} }

func (h *Hinge) Violation(s *System) float64 {
	return s.Body(h.Body).LocalToWorld(h.Local).Sub(h.Anchor).Len()
}

func (h *Hinge) Solve(s *System, dt float64) mgl64.Vec2 {
	f, rotational := h.ComputeReactionForce(s, dt)
	b := s.Body(h.Body)
	if rotational {
		b.AddForceAtPoint(f, b.LocalToWorld(h.Local))
	} else {
		b.AddForce(f)
	}
	return f
}

// ComputeReactionForce returns the force the hinge must apply this step
// without applying it, and whether it couples into rotation.
func (h *Hinge) ComputeReactionForce(s *System, dt float64) (mgl64.Vec2, bool) {
	b := s.Body(h.Body)
	p := b.LocalToWorld(h.Local)
	a := anchorSide{body: b, r: p.Sub(b.Position)}
	return solvePoint(a, anchorSide{}, p.Sub(h.Anchor), s.gain(h.Gain), dt)
}

func (h *Hinge) validate(s *System) error {
	if !finiteVec(h.Local) || !finiteVec(h.Anchor) || h.Gain < 0 || h.Gain > 1 {
		return ErrDegenerateConstraint
	}
	return nil
}

// Link pins LocalA on BodyA to LocalB on BodyB.
type Link struct {
	BodyA, BodyB   BodyID
	LocalA, LocalB mgl64.Vec2

	Gain float64
}

func (l *Link) Bodies() []BodyID { return []BodyID{l.BodyA, l.BodyB} }

func (l *Link) Violation(s *System) float64 {
	return s.Body(l.BodyA).LocalToWorld(l.LocalA).Sub(s.Body(l.BodyB).LocalToWorld(l.LocalB)).Len()
}

func (l *Link) Solve(s *System, dt float64) mgl64.Vec2 {
	f, rotational := l.ComputeReactionForce(s, dt)
	a, b := s.Body(l.BodyA), s.Body(l.BodyB)
	if rotational {
		a.AddForceAtPoint(f, a.LocalToWorld(l.LocalA))
		b.AddForceAtPoint(f.Mul(-1), b.LocalToWorld(l.LocalB))
	} else {
		a.AddForce(f)
		b.AddForce(f.Mul(-1))
	}
	return f
}

// ComputeReactionForce returns the force on BodyA (BodyB receives the
// opposite) without applying it, and whether it couples into rotation.
func (l *Link) ComputeReactionForce(s *System, dt float64) (mgl64.Vec2, bool) {
	a, b := s.Body(l.BodyA), s.Body(l.BodyB)
	pa, pb := a.LocalToWorld(l.LocalA), b.LocalToWorld(l.LocalB)
	return solvePoint(
		anchorSide{body: a, r: pa.Sub(a.Position)},
		anchorSide{body: b, r: pb.Sub(b.Position)},
		pa.Sub(pb), s.gain(l.Gain), dt,
	)
}

func (l *Link) validate(s *System) error {
	if l.BodyA == l.BodyB {
		return ErrDegenerateConstraint
	}
	if !finiteVec(l.LocalA) || !finiteVec(l.LocalB) || l.Gain < 0 || l.Gain > 1 {
		return ErrDegenerateConstraint
	}
	return nil
}

// anchorSide is one body's half of a point constraint; a nil body is the world.
type anchorSide struct {
	body *RigidBody
	r    mgl64.Vec2
}

func (a anchorSide) rotational() bool {
	return a.body != nil && a.r.LenSqr() > degenerateEpsilon
}

// effectiveMass returns the inverse mass matrix the point presents to a force.
func (a anchorSide) effectiveMass(rotational bool) mgl64.Mat2 {
	if a.body == nil {
		return mgl64.Mat2{}
	}
	im := 1 / a.body.Mass
	k := mgl64.Mat2{im, 0, 0, im}
	if !rotational {
		return k
	}
	ii := 1 / a.body.Inertia
	rx, ry := a.r[0], a.r[1]
	return k.Add(mgl64.Mat2{ry * ry * ii, -rx * ry * ii, -rx * ry * ii, rx * rx * ii})
}

func (a anchorSide) freeOmega(dt float64) float64 {
	if a.body == nil {
		return 0
	}
	return a.body.AngularVelocity + a.body.torque/a.body.Inertia*dt
}

// freeVelocity is the point velocity after integration if no constraint force acted.
func (a anchorSide) freeVelocity(dt float64) mgl64.Vec2 {
	if a.body == nil {
		return mgl64.Vec2{}
	}
	v := a.body.Velocity.Add(a.body.force.Mul(dt / a.body.Mass))
	return v.Add(perp(a.r).Mul(a.freeOmega(dt)))
}

// curvature is the part of the point's displacement over one step that the
// linear velocity term misses when the body turns by omega*dt.
func (a anchorSide) curvature(omega, dt float64) mgl64.Vec2 {
	if a.body == nil {
		return mgl64.Vec2{}
	}
	turn := omega * dt
	return mgl64.Rotate2D(turn).Mul2x1(a.r).Sub(a.r).Sub(perp(a.r).Mul(turn))
}

// singular compares det(K) with the square of its mean eigenvalue, so the
// test does not depend on the bodies' mass scale.
func singular(k mgl64.Mat2) bool {
	half := k.Trace() / 2
	return math.Abs(k.Det()) <= degenerateEpsilon*half*half
}

// solvePoint returns the force on side a (side b gets the negation) that
// lands the relative point displacement on -gain*drift after integration.
// The second pass re-evaluates the rotation term with the corrected spin.
func solvePoint(a, b anchorSide, drift mgl64.Vec2, gain, dt float64) (mgl64.Vec2, bool) {
	rotational := a.rotational() || b.rotational()
	k := a.effectiveMass(rotational).Add(b.effectiveMass(rotational))
	if rotational && singular(k) {
		rotational = false
		k = a.effectiveMass(false).Add(b.effectiveMass(false))
	}
	kInv := k.Inv()

	free := a.freeVelocity(dt).Sub(b.freeVelocity(dt))
	wa, wb := a.freeOmega(dt), b.freeOmega(dt)

	var f mgl64.Vec2
	for pass := 0; pass < 2; pass++ {
		bend := a.curvature(wa, dt).Sub(b.curvature(wb, dt))
		target := drift.Mul(-gain).Sub(bend).Mul(1 / dt)
		f = kInv.Mul2x1(target.Sub(free)).Mul(1 / dt)
		if !rotational {
			break
		}
		wa = a.freeOmega(dt)
		if a.body != nil {
			wa += cross(a.r, f) / a.body.Inertia * dt
		}
		wb = b.freeOmega(dt)
		if b.body != nil {
			wb -= cross(b.r, f) / b.body.Inertia * dt
		}
	}
	return f, rotational
}
