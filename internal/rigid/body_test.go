package rigid_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/rigidsim/internal/rigid"
)

var _ = Describe("RigidBody", func() {
	It("integrates velocity before position", func() {
		b := rigid.NewBody(2, 4)
		b.AddForce(mgl64.Vec2{4, 0})
		b.AddTorque(8)

		b.Integrate(0.5)

		Expect(b.Velocity[0]).To(Equal(1.0))
		Expect(b.Position[0]).To(Equal(0.5))
		Expect(b.AngularVelocity).To(Equal(1.0))
		Expect(b.Orientation).To(Equal(0.5))
		Expect(b.Force()).To(Equal(mgl64.Vec2{}))
		Expect(b.Torque()).To(BeZero())
	})

	It("derives rod mass properties", func() {
		rod := rigid.NewRod(1.5, 1.0)
		Expect(rod.Mass).To(Equal(3.0))
		Expect(rod.Inertia).To(BeNumerically("~", 6.75, 1e-12))
	})

	It("maps local points through position and orientation", func() {
		b := rigid.NewBody(1, 1)
		b.Position = mgl64.Vec2{1, 1}
		b.Orientation = math.Pi / 2

		p := b.LocalToWorld(mgl64.Vec2{1, 0})
		Expect(p[0]).To(BeNumerically("~", 1, 1e-12))
		Expect(p[1]).To(BeNumerically("~", 2, 1e-12))
	})

	It("adds the induced torque of an off-center force", func() {
		b := rigid.NewBody(1, 1)
		b.AddForceAtPoint(mgl64.Vec2{0, 2}, mgl64.Vec2{3, 0})

		Expect(b.Torque()).To(Equal(6.0))
		Expect(b.Force()).To(Equal(mgl64.Vec2{0, 2}))
	})
})

var _ = Describe("FrictionTorque", func() {
	reaction := mgl64.Vec2{0, 15}

	DescribeTable("opposes the spin",
		func(omega float64, sign int) {
			tq := rigid.FrictionTorque(omega, reaction, 0.025, 6.75, 1.0/60)
			switch sign {
			case -1:
				Expect(tq).To(BeNumerically("<=", 0))
			case 1:
				Expect(tq).To(BeNumerically(">=", 0))
			default:
				Expect(tq).To(BeZero())
			}
		},
		Entry("positive spin", 2.0, -1),
		Entry("small positive spin", 1e-9, -1),
		Entry("negative spin", -2.0, 1),
		Entry("small negative spin", -1e-9, 1),
		Entry("at rest", 0.0, 0),
	)

	It("stops but never reverses a slow spin", func() {
		dt := 1.0 / 60
		omega := 0.01

		tq := rigid.FrictionTorque(omega, mgl64.Vec2{1000, 0}, 1.0, 1.0, dt)
		Expect(omega + tq*dt).To(BeNumerically("~", 0, 1e-12))
	})

	It("scales with the reaction magnitude below the cap", func() {
		Expect(rigid.FrictionTorque(5, mgl64.Vec2{3, 4}, 0.1, 100, 1.0/60)).To(BeNumerically("~", -0.5, 1e-12))
	})
})
