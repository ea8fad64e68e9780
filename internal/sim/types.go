package sim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/san-kum/rigidsim/internal/rigid"
)

// Metric observes the system after every step.
type Metric interface {
	Name() string
	Observe(s *rigid.System, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *rigid.System, t float64)
}

// Kick sets a body's angular velocity right before the given step runs.
// It is how a host feeds discrete input (a key press) into a run.
type Kick struct {
	Step            int
	Body            rigid.BodyID
	AngularVelocity float64
}

type Config struct {
	Dt       float64
	Duration float64
	Kicks    []Kick
	// RecordEvery keeps one snapshot every N steps; zero or one keeps all.
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:       1.0 / 60,
		Duration: 10.0,
	}
}

type Result struct {
	Times       []float64
	States      [][]rigid.BodyState
	Metrics     map[string]float64
	Diagnostics rigid.Diagnostics
	StepsTaken  int
}

// FieldsPerBody is the width of one body in a flattened row.
const FieldsPerBody = 6

// Flatten returns one row per recorded sample: x, y, theta, vx, vy, omega
// for each body in registration order.
func (r *Result) Flatten() [][]float64 {
	rows := make([][]float64, len(r.States))
	for i, snap := range r.States {
		row := make([]float64, 0, len(snap)*FieldsPerBody)
		for _, b := range snap {
			row = append(row, b.Position[0], b.Position[1], b.Orientation, b.Velocity[0], b.Velocity[1], b.AngularVelocity)
		}
		rows[i] = row
	}
	return rows
}

// Fingerprint hashes the exact bits of every recorded time and state, so two
// runs match only if they are bit-for-bit identical.
func (r *Result) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	write := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	for i, row := range r.Flatten() {
		write(r.Times[i])
		for _, v := range row {
			write(v)
		}
	}
	return d.Sum64()
}

// SimError is a failure at a specific step of a run.
type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error {
	return e.Err
}
