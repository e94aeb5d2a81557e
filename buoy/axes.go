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
	"image/color"
	"math"
	"time"

	"github.com/tsdat/ingest-template-aws/dataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	rightAxisWidth = 1.1 * vg.Inch
	tickLength     = 4 // points
)

// hourTicks places a tick at every step-th hour of each day, from start
// (inclusive) to stop (exclusive). Axis values are Unix seconds.
type hourTicks struct {
	start, stop, step int
	format            string
}

// timeTicks ticks every 4 hours from 04:00 to 20:00.
var timeTicks = hourTicks{start: 4, stop: 21, step: 4, format: "15-04"}

// Ticks implements plot.Ticker.
func (h hourTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	day := dataset.ToTime(min).Truncate(24 * time.Hour)
	for ; dataset.Seconds(day) <= max; day = day.AddDate(0, 0, 1) {
		for hr := h.start; hr < h.stop; hr += h.step {
			t := day.Add(time.Duration(hr) * time.Hour)
			v := dataset.Seconds(t)
			if v < min || v > max {
				continue
			}
			ticks = append(ticks, plot.Tick{Value: v, Label: t.Format(h.format)})
		}
	}
	return ticks
}

// newTimePlot returns a plot with a UTC time x axis and a light grid.
func newTimePlot() *plot.Plot {
	p := plot.New()
	p.X.Label.Text = "Time (UTC)"
	p.X.Tick.Marker = timeTicks
	p.Legend.Top = true
	return p
}

func addGrid(p *plot.Plot) {
	g := plotter.NewGrid()
	g.Vertical.Color = color.Gray{Y: 211}
	g.Vertical.Width = vg.Points(0.5)
	g.Horizontal = g.Vertical
	p.Add(g)
}

// twinPanel is a time series panel with a y axis on each side.
type twinPanel struct {
	left, right *plot.Plot
	rightLines  []*plotter.Line
	colors      [2]color.Color

	// fixed is the range of the right axis, if it is not set by the data.
	fixed *[2]float64
}

func newTwinPanel(axisLabels [2]string, colors [2]color.Color) *twinPanel {
	left := newTimePlot()
	addGrid(left)
	left.Y.Label.Text = axisLabels[0]
	left.Y.Label.TextStyle.Color = colors[0]
	left.Y.Tick.Label.Color = colors[0]
	left.Y.LineStyle.Color = colors[0]
	left.Y.Tick.LineStyle.Color = colors[0]

	right := plot.New()
	right.Y.Label.Text = axisLabels[1]
	return &twinPanel{left: left, right: right, colors: colors}
}

// addLeft adds a line measured on the left axis.
func (p *twinPanel) addLeft(label string, l *plotter.Line) {
	p.left.Add(l)
	p.left.Legend.Add(label, l)
}

// addRight adds a line measured on the right axis. Its legend entry
// goes into the shared legend.
func (p *twinPanel) addRight(label string, l *plotter.Line) {
	p.right.Add(l)
	p.rightLines = append(p.rightLines, l)
	p.left.Legend.Add(label, l)
}

// draw draws the panel onto c, leaving room on the right for the
// second axis.
func (p *twinPanel) draw(c draw.Canvas) {
	main := draw.Crop(c, 0, -rightAxisWidth, 0, 0)
	p.left.Draw(main)
	da := p.left.DataCanvas(main)

	p.right.X.Min, p.right.X.Max = p.left.X.Min, p.left.X.Max
	sanitize(&p.right.X)
	if p.fixed != nil {
		p.right.Y.Min, p.right.Y.Max = p.fixed[0], p.fixed[1]
	}
	sanitize(&p.right.Y)
	for _, l := range p.rightLines {
		l.Plot(da, p.right)
	}
	p.drawRightAxis(c, da)
}

// drawRightAxis draws the right axis line, its ticks and its label
// along the right edge of the data area da.
func (p *twinPanel) drawRightAxis(c, da draw.Canvas) {
	ax := &p.right.Y
	sty := draw.LineStyle{Color: p.colors[1], Width: vg.Points(0.5)}
	x := da.Max.X
	c.StrokeLine2(sty, x, da.Min.Y, x, da.Max.Y)

	lbl := p.left.Y.Tick.Label
	lbl.Color = p.colors[1]
	lbl.XAlign = draw.XLeft
	lbl.YAlign = draw.YCenter
	var width vg.Length
	for _, t := range ax.Tick.Marker.Ticks(ax.Min, ax.Max) {
		y := da.Y(ax.Norm(t.Value))
		if t.IsMinor() {
			c.StrokeLine2(sty, x, y, x+vg.Points(tickLength/2), y)
			continue
		}
		c.StrokeLine2(sty, x, y, x+vg.Points(tickLength), y)
		c.FillText(lbl, vg.Point{X: x + vg.Points(2*tickLength), Y: y}, t.Label)
		if w := lbl.Width(t.Label); w > width {
			width = w
		}
	}

	title := p.left.Y.Label.TextStyle
	title.Color = p.colors[1]
	title.Rotation = math.Pi / 2
	title.XAlign = draw.XCenter
	title.YAlign = draw.YTop
	pt := vg.Point{
		X: x + vg.Points(3*tickLength) + width,
		Y: (da.Min.Y + da.Max.Y) / 2,
	}
	c.FillText(title, pt, ax.Label.Text)
}

// sanitize gives a usable range to an axis whose plotted data were
// empty or constant.
func sanitize(a *plot.Axis) {
	if math.IsInf(a.Min, 0) || math.IsNaN(a.Min) {
		a.Min = 0
	}
	if math.IsInf(a.Max, 0) || math.IsNaN(a.Max) {
		a.Max = 0
	}
	if a.Min > a.Max {
		a.Min, a.Max = a.Max, a.Min
	}
	if a.Min == a.Max {
		a.Min--
		a.Max++
	}
}

// drawTitle writes title centred at the top of c and returns the
// remaining area.
func drawTitle(c draw.Canvas, title string) draw.Canvas {
	sty := plot.New().Title.TextStyle
	sty.Font.Size = vg.Points(16)
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	c.FillText(sty, vg.Point{X: c.Center().X, Y: c.Max.Y}, title)
	return draw.Crop(c, 0, 0, 0, -(sty.Height(title) + vg.Points(8)))
}
