package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/rigid"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) < 4 || len(meta.Bodies) == 0 {
		return fmt.Errorf("no data")
	}

	col := column
	if col == "" {
		col = meta.Bodies[0] + "_theta"
	}
	data, err := storage.Column(meta.Bodies, states, col)
	if err != nil {
		return err
	}

	sampleDt := times[1] - times[0]

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	ps := analysis.PowerSpectrum(data)
	plotData := ps[:max(len(ps)/4, 2)]

	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum ("+col+")"),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := analysis.DominantFrequency(data, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	peaks := analysis.Peaks(times, data, mean(data))
	fmt.Printf("swing peaks: %d\n", len(peaks))
	if period := analysis.Period(peaks); period > 0 {
		fmt.Printf("peak period: %.3f s\n", period)
	}
	fmt.Printf("amplitude decay: %.4f 1/s\n", analysis.AmplitudeDecay(peaks))

	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(meta.Bodies) == 0 {
		return fmt.Errorf("no bodies in run %s", runID)
	}

	name := bodyName
	if name == "" {
		name = meta.Bodies[0]
	}
	theta, err := storage.Column(meta.Bodies, states, name+"_theta")
	if err != nil {
		return err
	}
	omega, err := storage.Column(meta.Bodies, states, name+"_omega")
	if err != nil {
		return err
	}

	fmt.Printf("phase portrait: %s (%s theta vs omega)\n\n", meta.ID, name)
	fmt.Print(analysis.NewPhasePortrait(theta, omega).ASCII(80, 24))
	return nil
}

// swingDecay is the amplitude decay rate of one body's orientation.
func swingDecay(r *sim.Result, body int) float64 {
	theta := make([]float64, 0, len(r.States))
	for _, snap := range r.States {
		if body < len(snap) {
			theta = append(theta, snap[body].Orientation)
		}
	}
	return analysis.AmplitudeDecay(analysis.Peaks(r.Times, theta, mean(theta)))
}

func estimateLyapunov(build func() (*rigid.System, error), body rigid.BodyID, cfg *config.Config) (float64, error) {
	return analysis.LyapunovExponent(build, body, 1e-8, cfg.Dt, cfg.Steps())
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}
