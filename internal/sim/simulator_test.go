package sim

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigidsim/internal/rigid"
)

func newPendulum(friction float64) (*rigid.System, rigid.BodyID) {
	sys := rigid.NewSystem()
	rod := rigid.NewRod(1.5, 1.0)
	rod.Position = mgl64.Vec2{-0.5, 0}
	id := sys.AddBody(rod)
	pin := sys.AddConstraint(&rigid.Hinge{Body: id, Local: mgl64.Vec2{-1.5, 0}, Anchor: mgl64.Vec2{-2, 0}})
	sys.AddForceGenerator(&rigid.Gravity{Body: id, Acceleration: mgl64.Vec2{0, -10}})
	if friction > 0 {
		sys.AddForceGenerator(&rigid.Friction{Body: id, Constraint: pin, Coefficient: friction})
	}
	return sys, id
}

func TestSimulatorRun(t *testing.T) {
	sys, _ := newPendulum(0)
	sim := New(sys, nil)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	require.NoError(t, err)

	assert.Len(t, result.States, 11)
	assert.Len(t, result.Times, 11)
	assert.Equal(t, 10, result.StepsTaken)
	assert.InDelta(t, 1.0, result.Times[len(result.Times)-1], 1e-9)
	assert.Less(t, result.States[10][0].Position[1], 0.0, "rod should have swung down")
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"shorter than a step", Config{Dt: 0.1, Duration: 0.05}},
		{"negative kick step", Config{Dt: 0.1, Duration: 1, Kicks: []Kick{{Step: -1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, _ := newPendulum(0)
			_, err := New(sys, nil).Run(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSimulatorConfigurationError(t *testing.T) {
	sys := rigid.NewSystem()
	sys.AddBody(rigid.NewBody(0, 1))

	_, err := New(sys, nil).Run(context.Background(), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, rigid.ErrConfiguration)
	assert.ErrorIs(t, err, rigid.ErrNonPositiveMass)
}

type testMetric struct {
	count int
	sum   float64
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(s *rigid.System, t float64) {
	m.count++
	m.sum += s.Body(0).Orientation
}
func (m *testMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *testMetric) Reset() {
	m.count = 0
	m.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sys, _ := newPendulum(0)
	sim := New(sys, nil)
	metric := &testMetric{}
	sim.AddMetric(metric)

	result, err := sim.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	require.NoError(t, err)

	_, ok := result.Metrics["test"]
	assert.True(t, ok, "metric not found in result")
	assert.Equal(t, 10, metric.count)
}

func TestSimulatorKicks(t *testing.T) {
	sys := rigid.NewSystem()
	id := sys.AddBody(rigid.NewBody(1, 1))

	cfg := Config{Dt: 0.1, Duration: 1.0, Kicks: []Kick{{Step: 5, Body: id, AngularVelocity: 2}}}
	result, err := New(sys, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Zero(t, result.States[5][0].AngularVelocity)
	assert.Equal(t, 2.0, result.States[6][0].AngularVelocity)
	assert.InDelta(t, 1.0, result.States[10][0].Orientation, 1e-12)
}

func TestSimulatorKickUnknownBody(t *testing.T) {
	for _, body := range []rigid.BodyID{7, 1, rigid.NoBody} {
		sys := rigid.NewSystem()
		sys.AddBody(rigid.NewBody(1, 1))

		cfg := Config{Dt: 0.1, Duration: 1.0, Kicks: []Kick{{Step: 0, Body: body, AngularVelocity: 1}}}
		result, err := New(sys, nil).Run(context.Background(), cfg)
		assert.ErrorIs(t, err, rigid.ErrUnknownBody, "body %d", body)
		assert.Nil(t, result)
		assert.Zero(t, sys.Body(0).AngularVelocity)
		assert.Zero(t, sys.Steps())
	}
}

func TestSimulatorRecordEvery(t *testing.T) {
	sys, _ := newPendulum(0)
	result, err := New(sys, nil).Run(context.Background(), Config{Dt: 0.01, Duration: 1.0, RecordEvery: 10})
	require.NoError(t, err)

	assert.Len(t, result.States, 11)
	assert.Equal(t, 100, result.StepsTaken)
}

func TestSimulatorCancel(t *testing.T) {
	sys, _ := newPendulum(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(sys, nil).Run(ctx, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.StepsTaken)
}

func TestRunsAreBitIdentical(t *testing.T) {
	run := func() *Result {
		sys, _ := newPendulum(0.025)
		r, err := New(sys, nil).Run(context.Background(), Config{Dt: 1.0 / 60, Duration: 5})
		require.NoError(t, err)
		return r
	}

	a, b := run(), run()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.States, b.States)

	sys, _ := newPendulum(0.05)
	c, err := New(sys, nil).Run(context.Background(), Config{Dt: 1.0 / 60, Duration: 5})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestSweep(t *testing.T) {
	frictions := []float64{0, 0.01, 0.05, 0.1}
	build := func(i int) (*Simulator, error) {
		sys, _ := newPendulum(frictions[i])
		return New(sys, nil), nil
	}

	results, err := Sweep(context.Background(), len(frictions), build, Config{Dt: 1.0 / 60, Duration: 2}, 2)
	require.NoError(t, err)
	require.Len(t, results, len(frictions))

	for i, r := range results {
		sys, _ := newPendulum(frictions[i])
		serial, err := New(sys, nil).Run(context.Background(), Config{Dt: 1.0 / 60, Duration: 2})
		require.NoError(t, err)
		assert.Equal(t, serial.Fingerprint(), r.Fingerprint(), "sweep result %d differs from serial run", i)
	}
}

func TestSweepPropagatesErrors(t *testing.T) {
	build := func(i int) (*Simulator, error) {
		sys := rigid.NewSystem()
		sys.AddBody(rigid.NewBody(float64(i), 1))
		return New(sys, nil), nil
	}

	_, err := Sweep(context.Background(), 3, build, Config{Dt: 0.1, Duration: 1}, 0)
	assert.ErrorIs(t, err, rigid.ErrNonPositiveMass)
}
