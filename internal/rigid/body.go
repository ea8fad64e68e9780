package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID indexes a body in its System's arena.
type BodyID int

// NoBody marks the world side of a two-body element.
const NoBody BodyID = -1

// RigidBody is a planar body rotating about the out-of-plane axis.
//
// Pose and velocity are public so hosts can read them after a step and set
// them during setup. AngularVelocity may also be set between steps as an
// external impulse (e.g. a key press).
type RigidBody struct {
	Mass    float64
	Inertia float64

	Position        mgl64.Vec2
	Orientation     float64
	Velocity        mgl64.Vec2
	AngularVelocity float64

	force  mgl64.Vec2
	torque float64
}

// NewBody returns a body at rest at the origin.
func NewBody(mass, inertia float64) *RigidBody {
	return &RigidBody{Mass: mass, Inertia: inertia}
}

// NewRod returns a thin rod of the given half length and linear density,
// with mass = density*2*halfLength and inertia = mass*halfLength^2.
func NewRod(halfLength, density float64) *RigidBody {
	mass := density * halfLength * 2
	return NewBody(mass, mass*halfLength*halfLength)
}

func (b *RigidBody) AddForce(f mgl64.Vec2) {
	b.force = b.force.Add(f)
}

func (b *RigidBody) AddTorque(t float64) {
	b.torque += t
}

// AddForceAtPoint applies f at a world-space point, adding the induced torque.
func (b *RigidBody) AddForceAtPoint(f, point mgl64.Vec2) {
	b.force = b.force.Add(f)
	b.torque += cross(point.Sub(b.Position), f)
}

func (b *RigidBody) Force() mgl64.Vec2 { return b.force }
func (b *RigidBody) Torque() float64   { return b.torque }

func (b *RigidBody) ClearAccumulators() {
	b.force = mgl64.Vec2{}
	b.torque = 0
}

// Integrate advances the body by dt with semi-implicit Euler: velocities
// first from the accumulated force and torque, then pose from the new
// velocities. Accumulators are cleared afterwards.
func (b *RigidBody) Integrate(dt float64) {
	b.Velocity = b.Velocity.Add(b.force.Mul(dt / b.Mass))
	b.AngularVelocity += b.torque / b.Inertia * dt

	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.Orientation += b.AngularVelocity * dt

	b.ClearAccumulators()
}

// LocalToWorld maps a point in the body frame to world space.
func (b *RigidBody) LocalToWorld(p mgl64.Vec2) mgl64.Vec2 {
	return b.Position.Add(mgl64.Rotate2D(b.Orientation).Mul2x1(p))
}

// PointVelocity returns the world velocity of a world-space point fixed to the body.
func (b *RigidBody) PointVelocity(point mgl64.Vec2) mgl64.Vec2 {
	return b.Velocity.Add(perp(point.Sub(b.Position)).Mul(b.AngularVelocity))
}

func (b *RigidBody) KineticEnergy() float64 {
	return 0.5*b.Mass*b.Velocity.LenSqr() + 0.5*b.Inertia*b.AngularVelocity*b.AngularVelocity
}

func (b *RigidBody) IsFinite() bool {
	for _, v := range []float64{b.Position[0], b.Position[1], b.Orientation, b.Velocity[0], b.Velocity[1], b.AngularVelocity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// BodyState is the read-only view hosts consume after each step.
type BodyState struct {
	Position        mgl64.Vec2
	Orientation     float64
	Velocity        mgl64.Vec2
	AngularVelocity float64
}

func (b *RigidBody) State() BodyState {
	return BodyState{
		Position:        b.Position,
		Orientation:     b.Orientation,
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
	}
}

// SetState overwrites the kinematic state. Accumulators are untouched.
func (b *RigidBody) SetState(st BodyState) {
	b.Position = st.Position
	b.Orientation = st.Orientation
	b.Velocity = st.Velocity
	b.AngularVelocity = st.AngularVelocity
}

func validateBody(b *RigidBody) error {
	if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
		return ErrNonPositiveMass
	}
	if !(b.Inertia > 0) || math.IsInf(b.Inertia, 0) {
		return ErrNonPositiveInertia
	}
	if !b.IsFinite() {
		return ErrInvalidParameter
	}
	return nil
}

// cross is the z component of a x b.
func cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// perp rotates v by +90 degrees, so w x r == perp(r)*w.
func perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

func finiteVec(v mgl64.Vec2) bool {
	return !math.IsNaN(v[0]) && !math.IsNaN(v[1]) && !math.IsInf(v[0], 0) && !math.IsInf(v[1], 0)
}
