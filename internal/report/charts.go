package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	chartBackground = color.RGBA{R: 15, G: 32, B: 39, A: 255}
	chartText       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	historicalColor = color.RGBA{R: 0, G: 230, B: 230, A: 255}
	forecastColor   = color.RGBA{R: 0, G: 255, B: 204, A: 255}
	changeColor     = color.RGBA{R: 255, G: 167, B: 38, A: 255}
)

// Chart dimensions.
const (
	TrendWidth       = 12 * vg.Inch
	TrendHeight      = 6 * vg.Inch
	PredictionWidth  = 12 * vg.Inch
	PredictionHeight = 8 * vg.Inch
)

func newDarkPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.TextStyle.Color = chartText
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.BackgroundColor = chartBackground
	p.Legend.TextStyle.Color = chartText
	p.Legend.Top = true
	p.Legend.Left = true

	for _, ax := range []*plot.Axis{&p.X, &p.Y} {
		ax.Label.TextStyle.Color = chartText
		ax.Tick.Label.Color = chartText
		ax.Tick.LineStyle.Color = chartText
		ax.LineStyle.Color = chartText
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}

	grid := plotter.NewGrid()
	grid.Vertical.Color = color.RGBA{R: 60, G: 80, B: 90, A: 255}
	grid.Horizontal.Color = color.RGBA{R: 60, G: 80, B: 90, A: 255}
	p.Add(grid)
	return p
}

func addSeries(p *plot.Plot, label string, pts plotter.XYs, c color.Color, shape draw.GlyphDrawer, dashed bool) error {
	if len(pts) == 0 {
		return nil
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("%s series: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(2)
	if dashed {
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	}
	points.GlyphStyle.Color = c
	points.GlyphStyle.Radius = vg.Points(3)
	points.GlyphStyle.Shape = shape

	p.Add(line, points)
	p.Legend.Add(label, line, points)
	return nil
}

// TrendPlot charts cumulative EV counts, historical and forecast.
func (r *Report) TrendPlot() (*plot.Plot, error) {
	p := newDarkPlot(fmt.Sprintf("%s County EV Trend", r.County), "Date", "Cumulative EV Count")

	hist := make(plotter.XYs, len(r.History))
	for i, h := range r.History {
		hist[i].X = float64(h.Date.Unix())
		hist[i].Y = h.Cumulative
	}
	fc := make(plotter.XYs, len(r.Forecast))
	for i, f := range r.Forecast {
		fc[i].X = float64(f.Date.Unix())
		fc[i].Y = f.Cumulative
	}

	if err := addSeries(p, SourceHistorical, hist, historicalColor, draw.CircleGlyph{}, false); err != nil {
		return nil, err
	}
	if err := addSeries(p, SourceForecast, fc, forecastColor, draw.CircleGlyph{}, false); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteTrendPNG renders the cumulative trend chart as PNG.
func (r *Report) WriteTrendPNG(w io.Writer) error {
	p, err := r.TrendPlot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(TrendWidth, TrendHeight, "png")
	if err != nil {
		return fmt.Errorf("render trend chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// PredictionPlots charts predicted monthly totals and their % change.
func (r *Report) PredictionPlots() (*plot.Plot, *plot.Plot, error) {
	totals := newDarkPlot(fmt.Sprintf("%s Monthly Prediction", r.County), "", "Predicted EVs")
	change := newDarkPlot("", "Date", "% Change")

	pred := make(plotter.XYs, len(r.Forecast))
	var pct plotter.XYs
	for i, f := range r.Forecast {
		x := float64(f.Date.Unix())
		pred[i].X = x
		pred[i].Y = float64(f.Predicted)
		if f.ChangePct != nil {
			pct = append(pct, plotter.XY{X: x, Y: *f.ChangePct})
		}
	}

	if err := addSeries(totals, "Predicted EV", pred, historicalColor, draw.CircleGlyph{}, false); err != nil {
		return nil, nil, err
	}
	if err := addSeries(change, "% Change", pct, changeColor, draw.CrossGlyph{}, true); err != nil {
		return nil, nil, err
	}
	return totals, change, nil
}

// WritePredictionPNG renders the prediction and % change panels stacked
// with aligned axes.
func (r *Report) WritePredictionPNG(w io.Writer) error {
	totals, change, err := r.PredictionPlots()
	if err != nil {
		return err
	}

	img := vgimg.NewWith(
		vgimg.UseWH(PredictionWidth, PredictionHeight),
		vgimg.UseBackgroundColor(chartBackground),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{{totals}, {change}}, tiles, dc)
	totals.Draw(canvases[0][0])
	change.Draw(canvases[1][0])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("render prediction chart: %w", err)
	}
	return nil
}
