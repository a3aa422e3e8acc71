package netcdf

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/couchcryptid/climate-gwl/internal/observability"
	"github.com/ctessum/sparse"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCoords = domain.Coords{Lats: []float64{-45, 45}, Lons: []float64{90, 270}}

func testRef() domain.DatasetRef {
	return domain.DatasetRef{
		Dataset:   "SPEAR_MED",
		Scenario:  "SSP585",
		Variable:  "T2M",
		Members:   3,
		FirstYear: 2015,
		LastYear:  2017,
	}
}

// writeEnsemble writes members whose value at (t, cell) is 100*m + 10*t + cell.
func writeEnsemble(t *testing.T, dir string, ref domain.DatasetRef) {
	t.Helper()
	nTime := ref.Years()
	for m := 1; m <= ref.Members; m++ {
		data := make([]float64, nTime*4)
		for i := range data {
			data[i] = float64(100*m + 10*(i/4) + i%4)
		}
		require.NoError(t, WriteMember(MemberPath(dir, ref, m), ref.Variable, nTime, testCoords, "K", data))
	}
}

func TestMemberPath(t *testing.T) {
	ref := testRef()
	ref.FirstYear, ref.LastYear = 1921, 2100
	got := MemberPath("/data", ref, 7)
	assert.Equal(t, "/data/SPEAR_MED/T2M/T2M_07_1921-2100.nc", got)
}

func TestReader_ReadField(t *testing.T) {
	dir := t.TempDir()
	ref := testRef()
	writeEnsemble(t, dir, ref)

	metrics := observability.NewMetrics()
	r := NewReader(dir, 2, slog.Default(), metrics)

	field, coords, err := r.ReadField(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 2, 2}, field.Shape)
	if diff := cmp.Diff(testCoords, coords); diff != "" {
		t.Fatalf("coords mismatch (-want +got):\n%s", diff)
	}
	// member 2, time 2, lat 1, lon 1
	assert.InDelta(t, 223.0, field.Elements[((1*3+2)*2+1)*2+1], 0)
	assert.InDelta(t, 100.0, field.Elements[0], 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FilesRead), 0)
}

func TestReader_MissingMember(t *testing.T) {
	dir := t.TempDir()
	ref := testRef()
	writeEnsemble(t, dir, ref)
	require.NoError(t, os.Remove(MemberPath(dir, ref, 2)))

	metrics := observability.NewMetrics()
	r := NewReader(dir, 4, slog.Default(), metrics)

	_, _, err := r.ReadField(context.Background(), ref)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "T2M_02_2015-2017.nc")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReadErrors), 0)
}

func TestReader_WrongTimeLength(t *testing.T) {
	dir := t.TempDir()
	ref := testRef()
	writeEnsemble(t, dir, ref)

	ref.Monthly = true
	r := NewReader(dir, 1, slog.Default(), observability.NewMetrics())
	_, _, err := r.ReadField(context.Background(), ref)
	assert.ErrorIs(t, err, domain.ErrDataShape)
}

func TestReader_InvalidRef(t *testing.T) {
	r := NewReader(t.TempDir(), 1, slog.Default(), observability.NewMetrics())
	_, _, err := r.ReadField(context.Background(), domain.DatasetRef{Dataset: "X", Variable: "T2M"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

// writeEnsembleFile stores a [member, year, lat, lon] ensemble for ref where
// value = 100*m + 10*y + cell.
func writeEnsembleFile(t *testing.T, path string, ref domain.DatasetRef, years int) {
	t.Helper()
	data := sparse.ZerosDense(ref.Members, years, 2, 2)
	for i := range data.Elements {
		cell, y, m := i%4, (i/4)%years, i/(4*years)
		data.Elements[i] = float64(100*m + 10*y + cell)
	}
	require.NoError(t, NewWriter(nil).WriteField(path, domain.NamedField{
		Name: ref.Variable, Units: "days", Data: data, Coords: testCoords,
	}))
}

func TestEnsemblePath(t *testing.T) {
	ref := testRef()
	got := EnsemblePath("/data", "HeatStats/HeatStats_JJA_US_T2M_{dataset}_{scenario}.nc", ref)
	assert.Equal(t, "/data/HeatStats/HeatStats_JJA_US_T2M_SPEAR_MED_SSP585.nc", got)
}

func TestEnsembleReader_ReadField(t *testing.T) {
	dir := t.TempDir()
	ref := testRef()
	ref.Variable = "count90"
	writeEnsembleFile(t, EnsemblePath(dir, "heat_{dataset}.nc", ref), ref, ref.Years())

	metrics := observability.NewMetrics()
	r := NewEnsembleReader(dir, "heat_{dataset}.nc", slog.Default(), metrics)
	field, coords, err := r.ReadField(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3, 2, 2}, field.Shape)
	assert.Equal(t, testCoords.Lons, coords.Lons)
	// member 2, year 1, cell 3
	assert.InDelta(t, 213.0, field.Elements[((2*3+1)*2+1)*2+1], 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FilesRead), 0)
}

func TestEnsembleReader_WrongYears(t *testing.T) {
	dir := t.TempDir()
	ref := testRef()
	writeEnsembleFile(t, EnsemblePath(dir, "{dataset}.nc", ref), ref, 2)

	metrics := observability.NewMetrics()
	r := NewEnsembleReader(dir, "{dataset}.nc", slog.Default(), metrics)
	_, _, err := r.ReadField(context.Background(), ref)
	assert.ErrorIs(t, err, domain.ErrDataShape)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReadErrors), 0)
}

func TestEnsembleReader_MissingFile(t *testing.T) {
	r := NewEnsembleReader(t.TempDir(), "{dataset}.nc", slog.Default(), observability.NewMetrics())
	_, _, err := r.ReadField(context.Background(), testRef())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPEAR_MED.nc")
}

func TestSeries_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "GMT2M_EmissionScenario_SSP534OS.nc")
	want := domain.NamedSeries{
		Name:  "SSP534OS",
		Years: []int{2015, 2016, 2017, 2018},
		Members: [][]float64{
			{0.1, 1.0 / 3.0, math.Pi, -2.718281828459045},
			{math.NaN(), 1e-300, 1.7976931348623157e308, 0},
		},
	}

	w := NewWriter(clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, w.SaveSeries(path, want))

	got, err := LoadSeries(path)
	require.NoError(t, err)

	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Years, got.Years)
	require.Len(t, got.Members, 2)
	for m := range want.Members {
		for y := range want.Years {
			assert.Equal(t, math.Float64bits(want.Members[m][y]), math.Float64bits(got.Members[m][y]),
				"member %d year %d", m, y)
		}
	}
}

func TestSeries_SaveRejectsRagged(t *testing.T) {
	w := NewWriter(nil)
	err := w.SaveSeries(filepath.Join(t.TempDir(), "s.nc"), domain.NamedSeries{
		Name: "SSP585", Years: []int{2015, 2016}, Members: [][]float64{{1}},
	})
	assert.ErrorIs(t, err, domain.ErrDataShape)
}

func TestLoadSeries_MissingFile(t *testing.T) {
	_, err := LoadSeries(filepath.Join(t.TempDir(), "nope.nc"))
	assert.Error(t, err)
}

func TestWriteField(t *testing.T) {
	dir := t.TempDir()
	data := sparse.ZerosDense(2, 2)
	copy(data.Elements, []float64{0.5, -0.25, math.NaN(), 1})

	w := NewWriter(clockwork.NewFakeClock())
	path := filepath.Join(dir, "diff.nc")
	require.NoError(t, w.WriteField(path, domain.NamedField{
		Name:   "diff_SSP534OS",
		Units:  "degC",
		Data:   data,
		Coords: testCoords,
		Attrs:  map[string]string{"warming_level": "2.1"},
	}))

	fh, f, err := openFile(path)
	require.NoError(t, err)
	defer fh.Close()

	vals, dims, err := readFloats(f, "diff_SSP534OS")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, dims)
	assert.InDelta(t, -0.25, vals[1], 0)
	assert.True(t, math.IsNaN(vals[2]))
	assert.Equal(t, "degC", stringAttr(f, "diff_SSP534OS", "units"))
	assert.Equal(t, "2.1", stringAttr(f, "diff_SSP534OS", "warming_level"))

	lats, _, err := readFloats(f, "lat")
	require.NoError(t, err)
	assert.Equal(t, testCoords.Lats, lats)

	got, err := LoadField(path, "diff_SSP534OS")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, got.Data.Shape)
	assert.Equal(t, "degC", got.Units)
	assert.InDelta(t, 0.5, got.Data.Elements[0], 0)
	assert.Equal(t, map[string]string{"warming_level": "2.1"}, got.Attrs)
	if diff := cmp.Diff(testCoords, got.Coords); diff != "" {
		t.Fatalf("coords mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadField_MissingVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.nc")
	require.NoError(t, NewWriter(nil).WriteField(path, domain.NamedField{
		Name: "epoch", Data: sparse.ZerosDense(2, 2), Coords: testCoords,
	}))
	_, err := LoadField(path, "other")
	assert.Error(t, err)
}

func TestWriteField_CoordsMismatch(t *testing.T) {
	w := NewWriter(nil)
	err := w.WriteField(filepath.Join(t.TempDir(), "x.nc"), domain.NamedField{
		Name: "x", Data: sparse.ZerosDense(3, 2), Coords: testCoords,
	})
	assert.ErrorIs(t, err, domain.ErrDataShape)
}
