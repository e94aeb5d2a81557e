/*
Copyright © 2021 the buoyingest authors.
This file is part of buoyingest.

buoyingest is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

buoyingest is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with buoyingest.  If not, see <http://www.gnu.org/licenses/>.
*/

package buoy

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tsdat/ingest-template-aws/dataset"
	"github.com/tsdat/ingest-template-aws/ingest"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Plot tags, used in the names of the plot files.
const (
	SurfaceMetTag      = "surface_met_parameters"
	ConductivityTag    = "conductivity"
	CurrentVelocityTag = "current_velocity"
)

const (
	figureWidth   = 14 * vg.Inch
	figureHeight  = 8 * vg.Inch
	figureMargin  = 0.15 * vg.Inch
	colorBarWidth = 1.2 * vg.Inch
	speedLevels   = 30
)

// Line colours: the viridis colour map at 0 and 0.6.
var lineColors = [2]color.Color{
	color.RGBA{R: 68, G: 1, B: 84, A: 255},
	color.RGBA{R: 34, G: 168, B: 132, A: 255},
}

// Saver stores a file.
type Saver interface {
	Save(path string) error
}

// TempPather provides a temporary path for a file name that is valid
// only while fn runs.
type TempPather interface {
	WithTempPath(filename string, fn func(path string) error) error
}

// Renderer draws the diagnostic plots of a standardized buoy dataset
// and hands each one to Storage.
type Renderer struct {
	Storage Saver
	Temp    TempPather

	// DPI is the resolution of the output images.
	DPI int

	Log logrus.FieldLogger
}

// NewRenderer returns a renderer that saves to storage through
// temporary files from temp.
func NewRenderer(storage Saver, temp TempPather) *Renderer {
	return &Renderer{
		Storage: storage,
		Temp:    temp,
		DPI:     100,
		Log:     logrus.StandardLogger(),
	}
}

// GenerateAndPersistPlots renders the surface meteorology, conductivity
// and current velocity plots of d, in that order, saving each one before
// the next is drawn. Plots saved before an error are kept.
func (r *Renderer) GenerateAndPersistPlots(d *dataset.Dataset) error {
	f, err := newFigure(d)
	if err != nil {
		return fmt.Errorf("buoy: plots: %w", err)
	}
	for _, p := range []struct {
		tag  string
		draw func(draw.Canvas, *figure) error
	}{
		{tag: SurfaceMetTag, draw: drawSurfaceMet},
		{tag: ConductivityTag, draw: drawConductivity},
		{tag: CurrentVelocityTag, draw: r.drawCurrentVelocity},
	} {
		if err := r.persist(f, p.tag, p.draw); err != nil {
			return fmt.Errorf("buoy: %s plot: %w", p.tag, err)
		}
	}
	return nil
}

// persist draws one figure into a temporary PNG file and saves it.
func (r *Renderer) persist(f *figure, tag string, fn func(draw.Canvas, *figure) error) error {
	name, err := ingest.PlotFilename(f.d, tag, "png")
	if err != nil {
		return err
	}
	return r.Temp.WithTempPath(name, func(path string) error {
		img := vgimg.NewWith(vgimg.UseWH(figureWidth, figureHeight), vgimg.UseDPI(r.DPI))
		c := draw.New(img)
		if err := fn(draw.Crop(c, figureMargin, -figureMargin, figureMargin, -figureMargin), f); err != nil {
			return err
		}

		w, err := os.Create(path)
		if err != nil {
			return err
		}
		if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		if err := r.Storage.Save(path); err != nil {
			return err
		}
		r.Log.WithFields(logrus.Fields{
			"plot": tag,
			"file": name,
		}).Info("saved plot")
		return nil
	})
}

// figure holds what every plot of a dataset shares.
type figure struct {
	d        *dataset.Dataset
	times    []float64
	location string
	date     string
}

func newFigure(d *dataset.Dataset) (*figure, error) {
	times, err := d.Float64s(dataset.TimeDim)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("dataset has no time samples")
	}
	location, ok := d.Attrs["location_meaning"]
	if !ok {
		return nil, fmt.Errorf("dataset has no location_meaning attribute")
	}
	return &figure{
		d:        d,
		times:    times,
		location: location,
		date:     dataset.ToTime(times[0]).Format("02-Jan-2006"),
	}, nil
}

func (f *figure) title(kind string) string {
	return fmt.Sprintf("%s at %s on %s", kind, f.location, f.date)
}

// line returns a time series line of the named variable. Missing
// samples are left out.
func (f *figure) line(name string, c color.Color, dashed bool) (*plotter.Line, error) {
	vals, err := f.d.Float64s(name)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(f.times) {
		return nil, fmt.Errorf("variable %s has %d values for %d times", name, len(vals), len(f.times))
	}
	xys := make(plotter.XYs, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: f.times[i], Y: v})
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(2)
	if dashed {
		l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	}
	return l, nil
}

// series is one variable drawn in a panel.
type series struct {
	name, label string
	dashed      bool
}

// panel builds a two-axis panel with one series per axis, preceded by
// the extra pairs.
func (f *figure) panel(axisLabels [2]string, pairs ...[2]series) (*twinPanel, error) {
	p := newTwinPanel(axisLabels, lineColors)
	for _, pair := range pairs {
		l, err := f.line(pair[0].name, lineColors[0], pair[0].dashed)
		if err != nil {
			return nil, err
		}
		p.addLeft(pair[0].label, l)
		l, err = f.line(pair[1].name, lineColors[1], pair[1].dashed)
		if err != nil {
			return nil, err
		}
		p.addRight(pair[1].label, l)
	}
	return p, nil
}

func drawSurfaceMet(c draw.Canvas, f *figure) error {
	wind, err := f.panel([2]string{"U (m/s)", "θ (degrees)"},
		[2]series{
			{name: "gill_wind_speed", label: "U Gill", dashed: true},
			{name: "gill_wind_direction", label: "θ Gill", dashed: true},
		},
		[2]series{
			{name: "wind_speed", label: "U Cup"},
			{name: "wind_direction", label: "θ Cup"},
		})
	if err != nil {
		return err
	}
	wind.fixed = &[2]float64{0, 360}

	pressure, err := f.panel([2]string{"P (bar)", "RH (%)"},
		[2]series{
			{name: "pressure", label: "Pressure"},
			{name: "rh", label: "Relative Humidity"},
		})
	if err != nil {
		return err
	}
	temperature, err := f.panel([2]string{"T air (°C)", "SST (°C)"},
		[2]series{
			{name: "air_temperature", label: "Air Temperature"},
			{name: "CTD_SST", label: "Sea Surface Temperature"},
		})
	if err != nil {
		return err
	}

	c = drawTitle(c, f.title("Surface Met Parameters"))
	tiles := draw.Tiles{Rows: 3, Cols: 1, PadY: vg.Points(10)}
	for i, p := range []*twinPanel{wind, pressure, temperature} {
		p.draw(tiles.At(c, 0, i))
	}
	return nil
}

func drawConductivity(c draw.Canvas, f *figure) error {
	p, err := f.panel([2]string{"Conductivity (S/m)", "SST (°C)"},
		[2]series{
			{name: "conductivity", label: "Conductivity (S/m)"},
			{name: "CTD_SST", label: "SST (°C)"},
		})
	if err != nil {
		return err
	}
	c = drawTitle(c, f.title("Conductivity and Sea Surface Temperature"))
	p.draw(c)
	return nil
}

// drawCurrentVelocity draws current speed as a colour field over time
// and depth, with arrows showing the current direction.
func (r *Renderer) drawCurrentVelocity(c draw.Canvas, f *figure) error {
	depths, err := f.d.Float64s(DepthName)
	if err != nil {
		return err
	}
	speed, err := f.timeDepthVar(CurrentSpeedName, len(depths))
	if err != nil {
		return err
	}
	direction, err := f.timeDepthVar(CurrentDirectionName, len(depths))
	if err != nil {
		return err
	}
	if len(f.times) < 2 || len(depths) < 2 {
		return fmt.Errorf("current speed needs at least 2 times and 2 depths; have %d and %d",
			len(f.times), len(depths))
	}
	min, max := finiteRange(speed.Data.Elements)
	if math.IsNaN(min) {
		return fmt.Errorf("%s has no valid values", CurrentSpeedName)
	}
	if min == max {
		min, max = min-0.5, max+0.5
	}

	cm := moreland.Kindlmann()
	cm.SetMin(min)
	cm.SetMax(max)
	hm := plotter.NewHeatMap(speedGrid{times: f.times, depths: depths, data: speed.Data}, cm.Palette(speedLevels))
	hm.Min, hm.Max = min, max
	hm.NaN = color.Transparent

	p := newTimePlot()
	p.Y.Label.Text = "Depth (m)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(hm)

	field := newDirectionField(f.times, depths, direction.Data)
	if field.empty() {
		r.Log.WithFields(logrus.Fields{
			"times":  len(f.times),
			"depths": len(depths),
		}).Info("buoy: too few hourly samples for current direction arrows")
	} else {
		q := plotter.NewField(field)
		q.LineStyle.Color = color.White
		q.LineStyle.Width = vg.Points(0.75)
		p.Add(q)
	}

	c = drawTitle(c, f.title("Current Speed and Direction"))
	main := draw.Crop(c, 0, -colorBarWidth, 0, 0)
	p.Draw(main)
	da := p.DataCanvas(main)

	cb := plot.New()
	cb.HideX()
	cb.Y.Label.Text = "Current Speed (mm/s)"
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true, Colors: speedLevels})
	cb.Draw(draw.Canvas{
		Canvas: c.Canvas,
		Rectangle: vg.Rectangle{
			Min: vg.Point{X: c.Max.X - colorBarWidth + vg.Points(12), Y: da.Min.Y},
			Max: vg.Point{X: c.Max.X, Y: da.Max.Y},
		},
	})
	return nil
}

// timeDepthVar returns the named variable, checking that it lies over
// time and depth.
func (f *figure) timeDepthVar(name string, ndepth int) (*dataset.Variable, error) {
	v, err := f.d.Var(name)
	if err != nil {
		return nil, err
	}
	if v.Len(dataset.TimeDim) != len(f.times) || v.Len(DepthName) != ndepth || len(v.Dims) != 2 ||
		v.Dims[0] != dataset.TimeDim {
		return nil, fmt.Errorf("variable %s has dimensions %v and shape %v; expected (%s, %s)",
			name, v.Dims, v.Data.Shape, dataset.TimeDim, DepthName)
	}
	return v, nil
}
