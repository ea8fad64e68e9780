package storage

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/rigidsim/internal/sim"
)

type ExportData struct {
	Scenario    string             `json:"scenario"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Bodies      []string           `json:"bodies"`
	Columns     []string           `json:"columns"`
	Times       []float64          `json:"times"`
	States      [][]float64        `json:"states"`
	Metrics     map[string]float64 `json:"metrics"`
	Fingerprint uint64             `json:"fingerprint"`
}

func NewExportData(info RunInfo, result *sim.Result) ExportData {
	return ExportData{
		Scenario:    info.Scenario,
		Dt:          info.Dt,
		Duration:    info.Duration,
		Steps:       result.StepsTaken,
		Bodies:      info.Bodies,
		Columns:     StateHeader(info.Bodies)[1:],
		Times:       result.Times,
		States:      result.Flatten(),
		Metrics:     finiteMetrics(result.Metrics),
		Fingerprint: result.Fingerprint(),
	}
}

// StoredExportData rebuilds the export document of a saved run.
func (s *Store) StoredExportData(runID string) (ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return ExportData{}, err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return ExportData{}, err
	}
	fp, _ := strconv.ParseUint(meta.Fingerprint, 16, 64)
	return ExportData{
		Scenario:    meta.Scenario,
		Dt:          meta.Dt,
		Duration:    meta.Duration,
		Steps:       meta.Steps,
		Bodies:      meta.Bodies,
		Columns:     StateHeader(meta.Bodies)[1:],
		Times:       times,
		States:      states,
		Metrics:     meta.Metrics,
		Fingerprint: fp,
	}, nil
}

func WriteJSON(w io.Writer, data ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ExportJSON(path string, info RunInfo, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, NewExportData(info, result))
}

func ExportJSONStdout(info RunInfo, result *sim.Result) error {
	return WriteJSON(os.Stdout, NewExportData(info, result))
}
