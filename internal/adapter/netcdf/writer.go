package netcdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/jonboulle/clockwork"
)

const seriesNameAttr = "series_name"

// fieldAttrs are the variable attributes LoadField restores into Attrs.
var fieldAttrs = []string{
	"description",
	"season",
	"region",
	"warming_level",
	"yrplus",
	"crossing_year",
	"source_variable",
}

// Writer creates analysis artifacts, stamping each with a history attribute.
type Writer struct {
	clock clockwork.Clock
}

// NewWriter creates a Writer. A nil clock uses real time.
func NewWriter(clock clockwork.Clock) *Writer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{clock: clock}
}

func (w *Writer) history() string {
	return "created " + w.clock.Now().UTC().Format(time.RFC3339) + " by gwl"
}

// SaveSeries writes per-member global-mean curves. Values are stored as
// doubles so LoadSeries returns them bit for bit.
func (w *Writer) SaveSeries(path string, s domain.NamedSeries) (err error) {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Name == "" {
		return &domain.ConfigurationError{Field: "series name", Reason: "is required"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	nMem, nYear := len(s.Members), len(s.Years)
	h := cdf.NewHeader([]string{"member", "year"}, []int{nMem, nYear})
	h.AddAttribute("", seriesNameAttr, s.Name)
	h.AddAttribute("", "history", w.history())
	h.AddVariable("year", []string{"year"}, []int32{0})
	h.AddAttribute("year", "units", "calendar year")
	h.AddVariable(s.Name, []string{"member", "year"}, []float64{0})
	h.AddAttribute(s.Name, "long_name", "area-weighted mean anomaly")

	fh, f, err := createFile(path, h)
	if err != nil {
		return err
	}
	defer func() { err = closeAll(fh, err) }()

	years := make([]int32, nYear)
	for i, y := range s.Years {
		years[i] = int32(y)
	}
	if err := writeVar(f, "year", years); err != nil {
		return err
	}
	flat := make([]float64, 0, nMem*nYear)
	for _, m := range s.Members {
		flat = append(flat, m...)
	}
	return writeVar(f, s.Name, flat)
}

// LoadSeries reads a file written by SaveSeries.
func LoadSeries(path string) (domain.NamedSeries, error) {
	fh, f, err := openFile(path)
	if err != nil {
		return domain.NamedSeries{}, err
	}
	defer fh.Close()

	name := stringAttr(f, "", seriesNameAttr)
	if name == "" {
		return domain.NamedSeries{}, fmt.Errorf("%s: missing %s attribute", path, seriesNameAttr)
	}
	yearVals, _, err := readFloats(f, "year")
	if err != nil {
		return domain.NamedSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	vals, dims, err := readFloats(f, name)
	if err != nil {
		return domain.NamedSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(dims) != 2 || dims[1] != len(yearVals) {
		return domain.NamedSeries{}, &domain.DataShapeError{
			Want: []int{0, len(yearVals)}, Got: dims, Reason: "series is not [member, year]",
		}
	}

	s := domain.NamedSeries{Name: name, Years: make([]int, len(yearVals))}
	for i, y := range yearVals {
		s.Years[i] = int(y)
	}
	nYear := dims[1]
	for m := 0; m < dims[0]; m++ {
		member := make([]float64, nYear)
		copy(member, vals[m*nYear:(m+1)*nYear])
		s.Members = append(s.Members, member)
	}
	return s, nil
}

// WriteField writes a gridded result. Data may be [lat, lon] or carry
// leading axes, which are written as dim0, dim1, ...
func (w *Writer) WriteField(path string, fld domain.NamedField) (err error) {
	if fld.Data == nil || len(fld.Data.Shape) < 2 {
		return &domain.DataShapeError{Reason: "field needs trailing [lat, lon] axes"}
	}
	shape := fld.Data.Shape
	nd := len(shape)
	if shape[nd-2] != len(fld.Coords.Lats) || shape[nd-1] != len(fld.Coords.Lons) {
		return &domain.DataShapeError{
			Want:   []int{len(fld.Coords.Lats), len(fld.Coords.Lons)},
			Got:    shape[nd-2:],
			Reason: "coordinates do not match grid",
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	dimNames := make([]string, nd)
	for i := 0; i < nd-2; i++ {
		dimNames[i] = fmt.Sprintf("dim%d", i)
	}
	dimNames[nd-2], dimNames[nd-1] = "lat", "lon"

	h := cdf.NewHeader(dimNames, shape)
	h.AddAttribute("", "history", w.history())
	addCoordVars(h)
	h.AddVariable(fld.Name, dimNames, []float64{0})
	if fld.Units != "" {
		h.AddAttribute(fld.Name, "units", fld.Units)
	}
	for k, v := range fld.Attrs {
		h.AddAttribute(fld.Name, k, v)
	}

	fh, f, err := createFile(path, h)
	if err != nil {
		return err
	}
	defer func() { err = closeAll(fh, err) }()

	if err := writeCoords(f, fld.Coords); err != nil {
		return err
	}
	return writeVar(f, fld.Name, fld.Data.Elements)
}

// LoadField reads variable name from a file written by WriteField, along
// with the known string attributes of that variable.
func LoadField(path, name string) (domain.NamedField, error) {
	fh, f, err := openFile(path)
	if err != nil {
		return domain.NamedField{}, err
	}
	defer fh.Close()

	vals, dims, err := readFloats(f, name)
	if err != nil {
		return domain.NamedField{}, fmt.Errorf("%s: %w", path, err)
	}
	lats, _, err := readFloats(f, "lat")
	if err != nil {
		return domain.NamedField{}, fmt.Errorf("%s: %w", path, err)
	}
	lons, _, err := readFloats(f, "lon")
	if err != nil {
		return domain.NamedField{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(dims) < 2 || dims[len(dims)-2] != len(lats) || dims[len(dims)-1] != len(lons) {
		return domain.NamedField{}, &domain.DataShapeError{
			Want: []int{len(lats), len(lons)}, Got: dims, Reason: "field does not end in [lat, lon]",
		}
	}

	data := sparse.ZerosDense(dims...)
	copy(data.Elements, vals)
	attrs := map[string]string{}
	for _, k := range fieldAttrs {
		if v := stringAttr(f, name, k); v != "" {
			attrs[k] = v
		}
	}
	return domain.NamedField{
		Name:   name,
		Units:  stringAttr(f, name, "units"),
		Data:   data,
		Coords: domain.Coords{Lats: lats, Lons: lons},
		Attrs:  attrs,
	}, nil
}

// WriteMember writes one ensemble member in the layout ReadField expects,
// data being [time, lat, lon] flattened. Values are stored single precision
// like the model post-processing output.
func WriteMember(path, variable string, nTime int, coords domain.Coords, units string, data []float64) (err error) {
	nLat, nLon := len(coords.Lats), len(coords.Lons)
	if len(data) != nTime*nLat*nLon {
		return &domain.DataShapeError{
			Want: []int{nTime, nLat, nLon}, Got: []int{len(data)}, Reason: "member data length",
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	h := cdf.NewHeader([]string{"time", "lat", "lon"}, []int{nTime, nLat, nLon})
	addCoordVars(h)
	h.AddVariable(variable, []string{"time", "lat", "lon"}, []float32{0})
	h.AddAttribute(variable, "units", units)

	fh, f, err := createFile(path, h)
	if err != nil {
		return err
	}
	defer func() { err = closeAll(fh, err) }()

	if err := writeCoords(f, coords); err != nil {
		return err
	}
	buf := make([]float32, len(data))
	for i, v := range data {
		buf[i] = float32(v)
	}
	return writeVar(f, variable, buf)
}

func addCoordVars(h *cdf.Header) {
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
}

func writeCoords(f *cdf.File, c domain.Coords) error {
	if err := writeVar(f, "lat", c.Lats); err != nil {
		return err
	}
	return writeVar(f, "lon", c.Lons)
}
