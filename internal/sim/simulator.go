package sim

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/rigid"
)

// Simulator drives a rigid.System with a fixed timestep for a bounded run.
type Simulator struct {
	sys       *rigid.System
	metrics   []Metric
	observers []Observer
	logger    *zap.Logger
}

func New(sys *rigid.System, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		sys:       sys,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) System() *rigid.System  { return s.sys }

// Run initializes the system if needed and steps it for cfg.Duration.
// Cancellation is checked between steps; the partial result is returned
// alongside ctx.Err().
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if !s.sys.Initialized() {
		if err := s.sys.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize system: %w", err)
		}
	}
	for i, k := range cfg.Kicks {
		if k.Body < 0 || int(k.Body) >= s.sys.NumBodies() {
			return nil, fmt.Errorf("kick %d: body %d: %w", i, k.Body, rigid.ErrUnknownBody)
		}
	}

	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}
	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	result := &Result{
		Times:   make([]float64, 0, steps/every+1),
		States:  make([][]rigid.BodyState, 0, steps/every+1),
		Metrics: make(map[string]float64),
	}

	kicks := append([]Kick(nil), cfg.Kicks...)
	sort.SliceStable(kicks, func(i, j int) bool { return kicks[i].Step < kicks[j].Step })

	for _, m := range s.metrics {
		m.Reset()
	}

	t := s.sys.Time()
	result.Times = append(result.Times, t)
	result.States = append(result.States, s.sys.Snapshot())

	s.logger.Info("run started",
		zap.Int("bodies", s.sys.NumBodies()),
		zap.Int("steps", steps),
		zap.Float64("dt", cfg.Dt),
	)

	next := 0
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Diagnostics = s.sys.Diagnostics()
			return result, ctx.Err()
		default:
		}

		for next < len(kicks) && kicks[next].Step <= i {
			k := kicks[next]
			s.sys.Body(k.Body).AngularVelocity = k.AngularVelocity
			s.logger.Debug("kick applied", zap.Int("step", i), zap.Int("body", int(k.Body)))
			next++
		}

		if err := s.sys.Process(cfg.Dt); err != nil {
			return result, SimError{Time: t, Step: i, Message: "process", Err: err}
		}
		t = s.sys.Time()
		result.StepsTaken++

		for _, m := range s.metrics {
			m.Observe(s.sys, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(s.sys, t)
		}

		if (i+1)%every == 0 || i == steps-1 {
			result.Times = append(result.Times, t)
			result.States = append(result.States, s.sys.Snapshot())
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Diagnostics = s.sys.Diagnostics()

	s.logger.Info("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Int("divergent_steps", result.Diagnostics.DivergentSteps),
		zap.Float64("max_violation", result.Diagnostics.MaxViolation),
	)
	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Duration < cfg.Dt {
		return fmt.Errorf("duration %f shorter than one step of %f", cfg.Duration, cfg.Dt)
	}
	for _, k := range cfg.Kicks {
		if k.Step < 0 {
			return fmt.Errorf("kick step must be non-negative, got %d", k.Step)
		}
	}
	return nil
}
