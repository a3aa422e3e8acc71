package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/climate-gwl/internal/domain"
	"github.com/couchcryptid/climate-gwl/internal/observability"
	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"
)

// MemberPath is where member m (1-based) of ref lives under dir:
// <dir>/<dataset>/<variable>/<variable>_<mm>_<first>-<last>.nc.
func MemberPath(dir string, ref domain.DatasetRef, member int) string {
	name := fmt.Sprintf("%s_%02d_%d-%d.nc", ref.Variable, member, ref.FirstYear, ref.LastYear)
	return filepath.Join(dir, ref.Dataset, ref.Variable, name)
}

// Reader loads ensemble fields, one file per member.
type Reader struct {
	dir         string
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewReader creates a Reader rooted at dir. At most concurrency member files
// are open at once.
func NewReader(dir string, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reader{dir: dir, concurrency: concurrency, logger: logger, metrics: metrics}
}

// ReadField stacks every member of ref into [ensemble, time, lat, lon]. The
// time axis holds 12 records per year when ref.Monthly is set.
func (r *Reader) ReadField(ctx context.Context, ref domain.DatasetRef) (*sparse.DenseArray, domain.Coords, error) {
	if err := ref.Validate(); err != nil {
		return nil, domain.Coords{}, err
	}
	start := time.Now()

	nTime := ref.Years()
	if ref.Monthly {
		nTime *= 12
	}

	coords, err := r.readCoords(MemberPath(r.dir, ref, 1))
	if err != nil {
		r.metrics.ReadErrors.Inc()
		return nil, domain.Coords{}, err
	}
	nLat, nLon := len(coords.Lats), len(coords.Lons)
	memberShape := []int{nTime, nLat, nLon}
	stride := nTime * nLat * nLon
	out := sparse.ZerosDense(ref.Members, nTime, nLat, nLon)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for m := 0; m < ref.Members; m++ {
		dst := out.Elements[m*stride : (m+1)*stride]
		path := MemberPath(r.dir, ref, m+1)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := readMember(path, ref.Variable, memberShape, dst); err != nil {
				r.metrics.ReadErrors.Inc()
				return err
			}
			r.metrics.FilesRead.Inc()
			r.logger.Debug("member read", "dataset", ref.Dataset, "variable", ref.Variable, "path", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.Coords{}, fmt.Errorf("read %s: %w", ref, err)
	}

	r.logger.Info("field read",
		"dataset", ref.Dataset,
		"variable", ref.Variable,
		"members", ref.Members,
		"shape", out.Shape,
		"duration", time.Since(start),
	)
	return out, coords, nil
}

func (r *Reader) readCoords(path string) (domain.Coords, error) {
	fh, f, err := openFile(path)
	if err != nil {
		return domain.Coords{}, err
	}
	defer fh.Close()

	lats, _, err := readFloats(f, "lat")
	if err != nil {
		return domain.Coords{}, fmt.Errorf("%s: %w", path, err)
	}
	lons, _, err := readFloats(f, "lon")
	if err != nil {
		return domain.Coords{}, fmt.Errorf("%s: %w", path, err)
	}
	return domain.Coords{Lats: lats, Lons: lons}, nil
}

func readMember(path, variable string, shape []int, dst []float64) error {
	fh, f, err := openFile(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	vals, dims, err := readFloats(f, variable)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !slices.Equal(dims, shape) {
		return fmt.Errorf("%s: %w", path, &domain.DataShapeError{
			Want: shape, Got: dims, Reason: "member grid differs from ensemble",
		})
	}
	copy(dst, vals)
	return nil
}

// EnsemblePath expands {dataset} and {scenario} in pattern against ref and
// roots the result at dir.
func EnsemblePath(dir, pattern string, ref domain.DatasetRef) string {
	name := strings.NewReplacer("{dataset}", ref.Dataset, "{scenario}", ref.Scenario).Replace(pattern)
	return filepath.Join(dir, name)
}

// EnsembleReader loads precomputed yearly fields stored one file per
// scenario as [ensemble, year, lat, lon].
type EnsembleReader struct {
	dir     string
	pattern string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEnsembleReader creates an EnsembleReader for files named by pattern
// under dir.
func NewEnsembleReader(dir, pattern string, logger *slog.Logger, metrics *observability.Metrics) *EnsembleReader {
	return &EnsembleReader{dir: dir, pattern: pattern, logger: logger, metrics: metrics}
}

// ReadField returns the ensemble stored for ref. The file must hold
// ref.Members members and one record per year.
func (r *EnsembleReader) ReadField(ctx context.Context, ref domain.DatasetRef) (*sparse.DenseArray, domain.Coords, error) {
	if err := ref.Validate(); err != nil {
		return nil, domain.Coords{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Coords{}, err
	}
	path := EnsemblePath(r.dir, r.pattern, ref)
	out, coords, err := readEnsemble(path, ref)
	if err != nil {
		r.metrics.ReadErrors.Inc()
		return nil, domain.Coords{}, fmt.Errorf("read %s: %w", ref, err)
	}
	r.metrics.FilesRead.Inc()
	r.logger.Info("ensemble read", "dataset", ref.Dataset, "variable", ref.Variable, "path", path, "shape", out.Shape)
	return out, coords, nil
}

func readEnsemble(path string, ref domain.DatasetRef) (*sparse.DenseArray, domain.Coords, error) {
	fh, f, err := openFile(path)
	if err != nil {
		return nil, domain.Coords{}, err
	}
	defer fh.Close()

	vals, dims, err := readFloats(f, ref.Variable)
	if err != nil {
		return nil, domain.Coords{}, fmt.Errorf("%s: %w", path, err)
	}
	lats, _, err := readFloats(f, "lat")
	if err != nil {
		return nil, domain.Coords{}, fmt.Errorf("%s: %w", path, err)
	}
	lons, _, err := readFloats(f, "lon")
	if err != nil {
		return nil, domain.Coords{}, fmt.Errorf("%s: %w", path, err)
	}
	want := []int{ref.Members, ref.Years(), len(lats), len(lons)}
	if !slices.Equal(dims, want) {
		return nil, domain.Coords{}, fmt.Errorf("%s: %w", path, &domain.DataShapeError{
			Want: want, Got: dims, Reason: "ensemble file is not [member, year, lat, lon]",
		})
	}
	out := sparse.ZerosDense(dims...)
	copy(out.Elements, vals)
	return out, domain.Coords{Lats: lats, Lons: lons}, nil
}
