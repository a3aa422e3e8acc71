package domain

import "fmt"

// DatasetRef identifies one variable of one model experiment on disk.
type DatasetRef struct {
	Dataset   string // e.g. SPEAR_MED, SPEAR_MED_Scenario
	Scenario  string // e.g. SSP585, SSP534OS
	Variable  string // e.g. T2M, PRECT
	Members   int
	FirstYear int
	LastYear  int
	Monthly   bool // time axis holds 12 records per year
}

// Years returns the number of simulated years.
func (d DatasetRef) Years() int { return d.LastYear - d.FirstYear + 1 }

func (d DatasetRef) String() string {
	return fmt.Sprintf("%s/%s/%s[%d members, %d-%d]", d.Dataset, d.Scenario, d.Variable, d.Members, d.FirstYear, d.LastYear)
}

// Validate checks the reference describes a readable dataset.
func (d DatasetRef) Validate() error {
	switch {
	case d.Dataset == "":
		return configErr("dataset", "", "name is required")
	case d.Variable == "":
		return configErr("variable", "", "name is required")
	case d.Members <= 0:
		return configErr("members", fmt.Sprint(d.Members), "must be positive")
	case d.LastYear < d.FirstYear:
		return configErr("years", fmt.Sprintf("%d-%d", d.FirstYear, d.LastYear), "last year before first year")
	}
	return nil
}
