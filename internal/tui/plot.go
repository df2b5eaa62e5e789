package tui

import (
	"github.com/guptarohit/asciigraph"
)

// PlotEnergies renders an energy trace. Traces longer than width are
// downsampled so the plot stays one screen wide.
func PlotEnergies(energies []float64, width, height int, caption string) string {
	if len(energies) < 2 {
		return ""
	}
	data := downsample(energies, width)
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func downsample(data []float64, n int) []float64 {
	if n <= 1 || len(data) <= n {
		return data
	}
	out := make([]float64, n)
	step := float64(len(data)-1) / float64(n-1)
	for i := range out {
		out[i] = data[int(float64(i)*step+0.5)]
	}
	return out
}
