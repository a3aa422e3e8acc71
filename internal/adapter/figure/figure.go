// Package figure renders analysis results to PNG with gonum/plot.
package figure

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/climate-gwl/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Marker labels one located crossing on a time-series figure.
type Marker struct {
	Label string
	Year  int
	Value float64
}

// TimeSeriesFigure is ensemble curves for several scenarios on one axis.
type TimeSeriesFigure struct {
	Title    string
	YLabel   string
	Series   []domain.NamedSeries
	Level    float64 // drawn as a dashed guide when HasLevel is set
	HasLevel bool
	Markers  []Marker
}

// MapFigure is a [lat, lon] field with optional significance stippling.
type MapFigure struct {
	Title string
	Field domain.NamedField
	Mask  *domain.SignificanceMask
}

// Renderer writes figures of a fixed size.
type Renderer struct {
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewRenderer creates a Renderer producing 8x5 inch figures.
func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{width: 8 * vg.Inch, height: 5 * vg.Inch, logger: logger}
}

var errNoData = errors.New("figure: nothing to draw")

// TimeSeries draws each scenario's ensemble mean with a min/max band.
func (r *Renderer) TimeSeries(path string, fig TimeSeriesFigure) error {
	if len(fig.Series) == 0 {
		return errNoData
	}
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = fig.YLabel

	first, last := math.Inf(1), math.Inf(-1)
	for i, s := range fig.Series {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("figure: series %s: %w", s.Name, err)
		}
		stats := domain.EnsembleStats(s.Members)
		c := plotutil.Color(i)

		band := spreadPolygon(s.Years, stats.Min, stats.Max)
		if len(band) > 2 {
			poly, err := plotter.NewPolygon(band)
			if err != nil {
				return fmt.Errorf("figure: spread %s: %w", s.Name, err)
			}
			poly.Color = fade(c)
			poly.LineStyle.Width = 0
			p.Add(poly)
		}

		mean := finiteXYs(s.Years, stats.Mean)
		if len(mean) == 0 {
			continue
		}
		line, err := plotter.NewLine(mean)
		if err != nil {
			return fmt.Errorf("figure: mean %s: %w", s.Name, err)
		}
		line.LineStyle.Color = c
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)

		first = math.Min(first, mean[0].X)
		last = math.Max(last, mean[len(mean)-1].X)
	}
	if math.IsInf(first, 0) {
		return errNoData
	}

	if fig.HasLevel {
		guide, err := plotter.NewLine(plotter.XYs{{X: first, Y: fig.Level}, {X: last, Y: fig.Level}})
		if err != nil {
			return err
		}
		guide.LineStyle.Color = color.Gray{Y: 80}
		guide.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(guide)
	}

	if len(fig.Markers) > 0 {
		pts := make(plotter.XYs, 0, len(fig.Markers))
		for _, m := range fig.Markers {
			if math.IsNaN(m.Value) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(m.Year), Y: m.Value})
		}
		if len(pts) > 0 {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return err
			}
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			sc.GlyphStyle.Color = color.Black
			sc.GlyphStyle.Radius = vg.Points(3)
			p.Add(sc)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = true
	return r.save(p, path)
}

// Map draws a diverging heat map centered on zero. Significant points, when a
// mask is given, are overlaid as small dots.
func (r *Renderer) Map(path string, fig MapFigure) error {
	fld := fig.Field
	if fld.Data == nil || len(fld.Data.Shape) != 2 {
		return &domain.DataShapeError{Reason: "map needs a [lat, lon] field"}
	}
	nLat, nLon := fld.Data.Shape[0], fld.Data.Shape[1]
	if nLat != len(fld.Coords.Lats) || nLon != len(fld.Coords.Lons) {
		return &domain.DataShapeError{
			Want: []int{len(fld.Coords.Lats), len(fld.Coords.Lons)}, Got: fld.Data.Shape,
			Reason: "coordinates do not match grid",
		}
	}
	if nLat < 2 || nLon < 2 {
		return &domain.DataShapeError{Want: []int{2, 2}, Got: fld.Data.Shape, Reason: "map needs at least 2x2 points"}
	}

	lim := symmetricLimit(fld.Data.Elements)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-lim)
	cmap.SetMax(lim)

	hm := plotter.NewHeatMap(grid{fld}, cmap.Palette(255))
	hm.Min, hm.Max = -lim, lim
	hm.NaN = color.Transparent

	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(hm)

	if fig.Mask != nil {
		if len(fig.Mask.Significant) != nLat*nLon {
			return &domain.DataShapeError{
				Want: []int{nLat * nLon}, Got: []int{len(fig.Mask.Significant)},
				Reason: "mask does not match field",
			}
		}
		var pts plotter.XYs
		for i, sig := range fig.Mask.Significant {
			if sig {
				pts = append(pts, plotter.XY{X: fld.Coords.Lons[i%nLon], Y: fld.Coords.Lats[i/nLon]})
			}
		}
		if len(pts) > 0 {
			sc, err := plotter.NewScatter(pts)
			if err != nil {
				return err
			}
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			sc.GlyphStyle.Color = color.Black
			sc.GlyphStyle.Radius = vg.Points(0.8)
			p.Add(sc)
		}
	}

	return r.save(p, path)
}

func (r *Renderer) save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := p.Save(r.width, r.height, path); err != nil {
		return fmt.Errorf("figure: save %s: %w", path, err)
	}
	r.logger.Debug("figure written", "path", path)
	return nil
}

// grid adapts a [lat, lon] field to plotter.GridXYZ with columns as
// longitudes and rows as latitudes.
type grid struct{ f domain.NamedField }

func (g grid) Dims() (c, r int)   { return len(g.f.Coords.Lons), len(g.f.Coords.Lats) }
func (g grid) Z(c, r int) float64 { return g.f.Data.Elements[r*len(g.f.Coords.Lons)+c] }
func (g grid) X(c int) float64    { return g.f.Coords.Lons[c] }
func (g grid) Y(r int) float64    { return g.f.Coords.Lats[r] }

func symmetricLimit(vals []float64) float64 {
	lim := 0.0
	for _, v := range vals {
		if a := math.Abs(v); !math.IsNaN(a) && !math.IsInf(a, 0) && a > lim {
			lim = a
		}
	}
	if lim == 0 {
		return 1
	}
	return lim
}

func finiteXYs(years []int, vals []float64) plotter.XYs {
	out := make(plotter.XYs, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, plotter.XY{X: float64(years[i]), Y: v})
	}
	return out
}

// spreadPolygon walks max forward and min backward to outline the band.
func spreadPolygon(years []int, lo, hi []float64) plotter.XYs {
	upper := finiteXYs(years, hi)
	lower := finiteXYs(years, lo)
	out := make(plotter.XYs, 0, len(upper)+len(lower))
	out = append(out, upper...)
	for i := len(lower) - 1; i >= 0; i-- {
		out = append(out, lower[i])
	}
	return out
}

func fade(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 60}
}
