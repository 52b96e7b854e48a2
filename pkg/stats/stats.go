// Package stats computes per-channel intensity statistics for assembled
// volumes. The figures drive the contrast window metadata attached to
// serialized channels and the conversion summary printed by the CLI.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"stackstoome/internal/models"
)

// ChannelStats summarizes the intensity distribution of one volume
type ChannelStats struct {
	// Min and Max are the extreme sample values
	Min uint16
	Max uint16

	// Mean and StdDev describe the sample distribution
	Mean   float64
	StdDev float64
}

// Compute calculates intensity statistics over every voxel of a volume
func Compute(v *models.Volume) ChannelStats {
	if len(v.Data) == 0 {
		return ChannelStats{}
	}

	samples := make([]float64, len(v.Data))
	s := ChannelStats{Min: v.Data[0], Max: v.Data[0]}
	for i, value := range v.Data {
		samples[i] = float64(value)
		if value < s.Min {
			s.Min = value
		}
		if value > s.Max {
			s.Max = value
		}
	}

	s.Mean, s.StdDev = stat.MeanStdDev(samples, nil)
	return s
}
