// Package netcdf reads SPEAR ensemble member files and writes analysis
// artifacts in the NetCDF classic format.
package netcdf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/cdf"
)

// openFile opens a NetCDF file for reading. The caller closes the returned
// *os.File once done with the cdf.File.
func openFile(path string) (*os.File, *cdf.File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := cdf.Open(fh)
	if err != nil {
		fh.Close()
		return nil, nil, fmt.Errorf("netcdf: %s: %w", path, err)
	}
	return fh, f, nil
}

// createFile writes the header and returns a file ready for variable writes.
func createFile(path string, h *cdf.Header) (*os.File, *cdf.File, error) {
	h.Define()
	if err := errors.Join(h.Check()...); err != nil {
		return nil, nil, fmt.Errorf("netcdf: header for %s: %w", path, err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := cdf.Create(fh, h)
	if err != nil {
		fh.Close()
		return nil, nil, fmt.Errorf("netcdf: create %s: %w", path, err)
	}
	return fh, f, nil
}

// readFloats reads a whole variable as float64 along with its dimension
// lengths. Integer and single-precision variables are widened.
func readFloats(f *cdf.File, v string) ([]float64, []int, error) {
	dims := f.Header.Lengths(v)
	if len(dims) == 0 {
		return nil, nil, fmt.Errorf("variable %q not in file", v)
	}
	r := f.Reader(v, nil, nil)
	buf := r.Zero(-1)
	n, err := r.Read(buf)
	want := 1
	for _, d := range dims {
		want *= d
	}
	if err != nil && !(errors.Is(err, io.EOF) && n == want) {
		return nil, nil, fmt.Errorf("read %s: %w", v, err)
	}

	switch b := buf.(type) {
	case []float64:
		return b, dims, nil
	case []float32:
		return widen(b), dims, nil
	case []int32:
		return widen(b), dims, nil
	case []int16:
		return widen(b), dims, nil
	default:
		return nil, nil, fmt.Errorf("variable %q has unsupported type %T", v, buf)
	}
}

func widen[T float32 | int32 | int16](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func writeVar(f *cdf.File, v string, data any) error {
	w := f.Writer(v, nil, nil)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", v, err)
	}
	return nil
}

func stringAttr(f *cdf.File, v, name string) string {
	s, _ := f.Header.GetAttribute(v, name).(string)
	return s
}

func closeAll(fh *os.File, err error) error {
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	return err
}
