// Package plot renders recorded telemetry to PNG charts.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tuomaz/stationkeeper/internal/telemetry"
)

// ErrNoSamples is returned when there is nothing to draw.
var ErrNoSamples = errors.New("plot: no telemetry samples")

var (
	errorColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thrustColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	commandColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	correctionColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

// WriteTelemetry draws position error, applied thrust and commanded thrust
// against simulated time and saves the chart to path. The format follows the
// file extension.
func WriteTelemetry(path string, samples []telemetry.Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	p := gonumplot.New()
	p.Title.Text = "Station keeping"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "magnitude"
	p.Add(plotter.NewGrid())

	series := []struct {
		name  string
		color color.Color
		value func(telemetry.Sample) float64
		width vg.Length
	}{
		{"error", errorColor, func(s telemetry.Sample) float64 { return s.ErrorMagnitude }, vg.Points(2)},
		{"thrust", thrustColor, func(s telemetry.Sample) float64 { return s.ThrustMagnitude }, vg.Points(2)},
		{"command", commandColor, func(s telemetry.Sample) float64 { return s.CommandMagnitude }, vg.Points(1)},
	}
	for _, s := range series {
		line, err := plotter.NewLine(points(samples, s.value))
		if err != nil {
			return fmt.Errorf("plot %s: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = s.width
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	return save(p, path)
}

// WriteCorrections draws the cumulative correction count against simulated
// time and saves the chart to path.
func WriteCorrections(path string, samples []telemetry.Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	p := gonumplot.New()
	p.Title.Text = "Corrections"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "count"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(points(samples, func(s telemetry.Sample) float64 {
		return float64(s.Corrections)
	}))
	if err != nil {
		return fmt.Errorf("plot corrections: %w", err)
	}
	line.Color = correctionColor
	line.Width = vg.Points(2)
	p.Add(line)

	return save(p, path)
}

func points(samples []telemetry.Sample, value func(telemetry.Sample) float64) plotter.XYs {
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = s.Time
		pts[i].Y = value(s)
	}
	return pts
}

func save(p *gonumplot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
