package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceGenerator contributes forces and torques to bodies once per step.
// Implementations only touch accumulators, never pose or velocity.
type ForceGenerator interface {
	Apply(s *System, dt float64)
	Bodies() []BodyID
}

// Gravity applies Mass*Acceleration at the body's center of mass.
type Gravity struct {
	Body         BodyID
	Acceleration mgl64.Vec2
}

func (g *Gravity) Bodies() []BodyID { return []BodyID{g.Body} }

func (g *Gravity) Apply(s *System, dt float64) {
	b := s.Body(g.Body)
	b.AddForce(g.Acceleration.Mul(b.Mass))
}

// Friction brakes a hinged body's spin with a torque proportional to the
// magnitude of the reaction force its constraint cached on the previous step.
type Friction struct {
	Body        BodyID
	Constraint  ConstraintID
	Coefficient float64

	last float64
}

func (f *Friction) Bodies() []BodyID { return []BodyID{f.Body} }

func (f *Friction) Apply(s *System, dt float64) {
	b := s.Body(f.Body)
	f.last = FrictionTorque(b.AngularVelocity, s.Reaction(f.Constraint), f.Coefficient, b.Inertia, dt)
	b.AddTorque(f.last)
}

// LastTorque returns the torque added by the most recent Apply.
func (f *Friction) LastTorque() float64 { return f.last }

func (f *Friction) validate(s *System) error {
	if int(f.Constraint) < 0 || int(f.Constraint) >= len(s.constraints) {
		return ErrUnknownConstraint
	}
	if !(f.Coefficient >= 0) || math.IsInf(f.Coefficient, 0) {
		return ErrInvalidParameter
	}
	return nil
}

// FrictionTorque opposes omega with coefficient*|reaction|. The magnitude is
// capped at what stops the spin within dt, so it never reverses it; the plain
// coefficient*|reaction| generator has no such cap. There is no static
// friction: omega == 0 yields exactly zero.
func FrictionTorque(omega float64, reaction mgl64.Vec2, coefficient, inertia, dt float64) float64 {
	if omega == 0 || coefficient == 0 {
		return 0
	}
	mag := coefficient * reaction.Len()
	if dt > 0 {
		mag = math.Min(mag, inertia*math.Abs(omega)/dt)
	}
	return -math.Copysign(mag, omega)
}

// Spring is a damped Hooke spring between AnchorA on BodyA and AnchorB on
// BodyB. With BodyB == NoBody, AnchorB is a fixed world point.
type Spring struct {
	BodyA, BodyB     BodyID
	AnchorA, AnchorB mgl64.Vec2
	RestLength       float64
	Stiffness        float64
	Damping          float64
}

func (sp *Spring) Bodies() []BodyID {
	if sp.BodyB == NoBody {
		return []BodyID{sp.BodyA}
	}
	return []BodyID{sp.BodyA, sp.BodyB}
}

func (sp *Spring) Apply(s *System, dt float64) {
	a := s.Body(sp.BodyA)
	pa := a.LocalToWorld(sp.AnchorA)
	va := a.PointVelocity(pa)

	var b *RigidBody
	pb, vb := sp.AnchorB, mgl64.Vec2{}
	if sp.BodyB != NoBody {
		b = s.Body(sp.BodyB)
		pb = b.LocalToWorld(sp.AnchorB)
		vb = b.PointVelocity(pb)
	}

	d := pb.Sub(pa)
	length := d.Len()
	if length < degenerateEpsilon {
		return
	}
	n := d.Mul(1 / length)
	mag := sp.Stiffness*(length-sp.RestLength) + sp.Damping*vb.Sub(va).Dot(n)

	f := n.Mul(mag)
	a.AddForceAtPoint(f, pa)
	if b != nil {
		b.AddForceAtPoint(f.Mul(-1), pb)
	}
}

func (sp *Spring) validate(s *System) error {
	if sp.BodyA == sp.BodyB || sp.Stiffness < 0 || sp.Damping < 0 || sp.RestLength < 0 {
		return ErrInvalidParameter
	}
	return nil
}

// Damping is viscous drag on a body's linear and angular velocity.
type Damping struct {
	Body    BodyID
	Linear  float64
	Angular float64
}

func (d *Damping) Bodies() []BodyID { return []BodyID{d.Body} }

func (d *Damping) Apply(s *System, dt float64) {
	b := s.Body(d.Body)
	b.AddForce(b.Velocity.Mul(-d.Linear))
	b.AddTorque(-d.Angular * b.AngularVelocity)
}

func (d *Damping) validate(s *System) error {
	if d.Linear < 0 || d.Angular < 0 {
		return ErrInvalidParameter
	}
	return nil
}
