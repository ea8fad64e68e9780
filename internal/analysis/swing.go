package analysis

import "math"

// Peak is a local maximum of |x| in a sampled series.
type Peak struct {
	Index int
	Time  float64
	Value float64
}

// Peaks finds the swing extremes of an oscillation centred on rest: samples
// where |x - rest| is a strict local maximum. times may be nil.
func Peaks(times, data []float64, rest float64) []Peak {
	var peaks []Peak
	for i := 1; i+1 < len(data); i++ {
		prev := math.Abs(data[i-1] - rest)
		cur := math.Abs(data[i] - rest)
		next := math.Abs(data[i+1] - rest)
		if cur > prev && cur >= next {
			p := Peak{Index: i, Value: cur}
			if i < len(times) {
				p.Time = times[i]
			}
			peaks = append(peaks, p)
		}
	}
	return peaks
}

// AmplitudeDecay fits ln(amplitude) = a - gamma*t over the peaks and
// returns gamma. It is positive for a damped swing and zero when there are
// fewer than two usable peaks.
func AmplitudeDecay(peaks []Peak) float64 {
	var n, sumT, sumY, sumTT, sumTY float64
	for _, p := range peaks {
		if p.Value <= 0 {
			continue
		}
		y := math.Log(p.Value)
		n++
		sumT += p.Time
		sumY += y
		sumTT += p.Time * p.Time
		sumTY += p.Time * y
	}
	if n < 2 {
		return 0
	}

	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0
	}
	return -(n*sumTY - sumT*sumY) / denom
}

// Period is the mean spacing between alternate peaks, which for a swing
// measured about rest is one full oscillation.
func Period(peaks []Peak) float64 {
	if len(peaks) < 3 {
		return 0
	}
	cycles := (len(peaks) - 1) / 2
	last := peaks[len(peaks)-1]
	first := peaks[len(peaks)-1-2*cycles]
	return (last.Time - first.Time) / float64(cycles)
}
