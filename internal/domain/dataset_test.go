package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetRef(t *testing.T) {
	ref := DatasetRef{
		Dataset:   "SPEAR_MED",
		Scenario:  "SSP585",
		Variable:  "T2M",
		Members:   30,
		FirstYear: 2015,
		LastYear:  2100,
	}
	assert.NoError(t, ref.Validate())
	assert.Equal(t, 86, ref.Years())
	assert.Equal(t, "SPEAR_MED/SSP585/T2M[30 members, 2015-2100]", ref.String())

	cases := []struct {
		name  string
		edit  func(*DatasetRef)
		field string
	}{
		{"no dataset", func(d *DatasetRef) { d.Dataset = "" }, "dataset"},
		{"no variable", func(d *DatasetRef) { d.Variable = "" }, "variable"},
		{"no members", func(d *DatasetRef) { d.Members = 0 }, "members"},
		{"years reversed", func(d *DatasetRef) { d.LastYear = 2000 }, "years"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bad := ref
			tc.edit(&bad)
			err := bad.Validate()
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}
