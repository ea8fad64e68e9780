// Package analysis characterizes recorded runs.
//
//   - [PowerSpectrum], [DominantFrequency]: spectral content of a series
//   - [Peaks], [AmplitudeDecay], [Period]: swing extremes and how fast they shrink
//   - [NewPhasePortrait], [PoincareSection]: phase-space views rendered as text
//   - [LyapunovExponent]: divergence of two nearby copies of a scene
//
// # Damping
//
// A pendulum with hinge friction loses amplitude every swing:
//
//	peaks := analysis.Peaks(times, theta, -math.Pi/2)
//	if analysis.AmplitudeDecay(peaks) > 0 {
//	    // swing is dying out
//	}
package analysis
