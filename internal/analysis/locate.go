package analysis

import (
	"fmt"

	"github.com/couchcryptid/climate-gwl/internal/domain"
)

// Located is a crossing tagged with the search phase that produced it:
// "single" for monotonic scenarios, "first" or "second" around a pivot.
type Located struct {
	Phase string
	domain.Crossing
}

// Locate finds the warming level in the ensemble mean of a saved series. A
// zero pivotYear runs the single-phase search.
func Locate(s domain.NamedSeries, level float64, pivotYear int) ([]Located, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	mean := s.EnsembleMean()

	if pivotYear == 0 {
		c, err := domain.LocateLevel(mean, level)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		return []Located{{Phase: "single", Crossing: c}}, nil
	}

	pivot, err := domain.PivotIndex(mean, pivotYear)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	cross, err := domain.DetectCrossings(mean, pivot, level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return []Located{
		{Phase: "first", Crossing: cross.First},
		{Phase: "second", Crossing: cross.Second},
	}, nil
}
