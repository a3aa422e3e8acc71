// Package domain models global warming level (GWL) analysis of SPEAR
// ensemble output and ERA5 reanalysis.
//
// # Data Layout
//
// Gridded model output is held in [sparse.DenseArray] values with the
// leading axes fixed by convention:
//
//	[ensemble, year, lat, lon]   per-member annual (or seasonal) fields
//	[ensemble, month, lat, lon]  raw monthly fields, month = year*12 + m
//	[lat, lon]                   epoch means, climatologies, differences
//
// Missing data is NaN. Every reduction in this package ignores NaN entries
// (they are excluded from both the sum and the count), so a cell whose
// samples are all missing reduces to NaN rather than zero.
//
// # Warming Levels
//
// A warming level is a global-mean temperature anomaly, in °C, relative to a
// fixed historical baseline window (SPEAR uses 1921–1950). The per-year
// global mean comes from [WeightedAverage] (cos-latitude weights) applied to
// anomalies from [Climatology], then averaged across the ensemble.
//
// A monotonically warming scenario reaches a level once; [LocateLevel] finds
// it. An overshoot scenario (e.g. SSP5-3.4OS) warms past the level, peaks,
// and cools back through it. [DetectCrossings] splits such a series at a
// caller-chosen pivot year and searches each half independently:
//
//	values:  0 1 2 3 4 5 4 3 2 1 0      level = 3, pivot = 5
//	               ^       ^
//	             first   second (index 7 in full-series coordinates)
//
// The pivot is hand-picked per scenario (typically the year of peak warming
// or later). It is not derived from the data.
//
// Neither lookup validates that the level is actually attained: the result
// is always the closest approach. [Crossing.Distance] carries the gap so the
// caller can decide whether the match is meaningful.
//
// # Epochs
//
// An epoch is the half-open window [center-yrplus, center+yrplus) around a
// crossing, 2*yrplus years long. [EpochMean] averages over ensemble and year
// axes; [EpochMemberMeans] keeps the ensemble axis so the two scenarios can be
// compared with a two-sample test in [Significance]. Windows that do not fit
// inside the series are rejected with a [BoundsError] rather than truncated.
//
// # Significance
//
// Per grid point, a pooled-variance Student t-test compares the ensemble
// members of two epochs. The resulting p-values are corrected across all
// points with the Benjamini–Hochberg false discovery rate procedure.
package domain
