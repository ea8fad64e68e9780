package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/rigidsim/internal/rigid"
)

// LyapunovExponent estimates the largest Lyapunov exponent of a scene by
// running two copies side by side. The second copy's body starts with its
// orientation shifted by perturbation; after every step the separation is
// measured over all body states and pulled back to perturbation.
//
// build must return a fresh, uninitialized system each call.
func LyapunovExponent(
	build func() (*rigid.System, error),
	body rigid.BodyID,
	perturbation, dt float64,
	steps int,
) (float64, error) {
	if perturbation <= 0 || dt <= 0 || steps <= 0 {
		return 0, errors.New("lyapunov: perturbation, dt and steps must be positive")
	}

	ref, err := build()
	if err != nil {
		return 0, err
	}
	pert, err := build()
	if err != nil {
		return 0, err
	}
	if err := ref.Initialize(); err != nil {
		return 0, err
	}
	if err := pert.Initialize(); err != nil {
		return 0, err
	}
	if int(body) < 0 || int(body) >= pert.NumBodies() {
		return 0, rigid.ErrUnknownBody
	}
	pert.Body(body).Orientation += perturbation

	sumLog := 0.0
	for i := 0; i < steps; i++ {
		if err := ref.Process(dt); err != nil {
			return 0, err
		}
		if err := pert.Process(dt); err != nil {
			return 0, err
		}

		a, b := ref.Snapshot(), pert.Snapshot()
		sep := separation(a, b)
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			continue
		}
		sumLog += math.Log(sep / perturbation)

		scale := perturbation / sep
		for j := range b {
			pert.Body(rigid.BodyID(j)).SetState(lerp(a[j], b[j], scale))
		}
	}

	return sumLog / (float64(steps) * dt), nil
}

func separation(a, b []rigid.BodyState) float64 {
	sum := 0.0
	for i := range a {
		dp := b[i].Position.Sub(a[i].Position)
		dv := b[i].Velocity.Sub(a[i].Velocity)
		dth := b[i].Orientation - a[i].Orientation
		dw := b[i].AngularVelocity - a[i].AngularVelocity
		sum += dp.Dot(dp) + dv.Dot(dv) + dth*dth + dw*dw
	}
	return math.Sqrt(sum)
}

func lerp(a, b rigid.BodyState, t float64) rigid.BodyState {
	return rigid.BodyState{
		Position:        a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		Orientation:     a.Orientation + (b.Orientation-a.Orientation)*t,
		Velocity:        a.Velocity.Add(b.Velocity.Sub(a.Velocity).Mul(t)),
		AngularVelocity: a.AngularVelocity + (b.AngularVelocity-a.AngularVelocity)*t,
	}
}
