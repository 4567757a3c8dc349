package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kidiqSample = `kid_score,mom_hs,mom_iq,mom_work,mom_age
65,1,121.11753,4,27
98,1,89.36188,4,25
85,1,115.44316,4,27
83,1,99.44964,3,25
115,1,92.74571,4,27
98,0,107.90184,1,18
69,1,NA,4,20
`

func TestReadCSVInfersKinds(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(kidiqSample))
	require.NoError(t, err)

	assert.Equal(t, 7, f.NRows())
	assert.Equal(t, []string{"kid_score", "mom_hs", "mom_iq", "mom_work", "mom_age"}, f.Names())

	iq, err := f.Column("mom_iq")
	require.NoError(t, err)
	assert.Equal(t, Numeric, iq.Kind)
	assert.True(t, iq.Missing[6])

	score, err := f.Numeric("kid_score")
	require.NoError(t, err)
	assert.Equal(t, 65.0, score[0])
}

func TestReadCSVCategoricalAndDelimiter(t *testing.T) {
	in := "y;group\n1.5;a\n2.5;b\n"
	f, err := ReadCSV(strings.NewReader(in), WithComma(';'))
	require.NoError(t, err)

	g, err := f.Column("group")
	require.NoError(t, err)
	assert.Equal(t, Categorical, g.Kind)
	assert.Equal(t, "b", g.Text(1))

	_, err = f.Numeric("group")
	assert.Error(t, err)
}

func TestMissingColumnError(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(kidiqSample))
	require.NoError(t, err)
	_, err = f.Column("dad_iq")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestDropIncomplete(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(kidiqSample))
	require.NoError(t, err)

	kept, dropped, err := f.DropIncomplete([]string{"kid_score", "mom_iq"})
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 6, kept.NRows())

	// unused columns do not cause drops
	same, dropped, err := f.DropIncomplete([]string{"kid_score", "mom_hs"})
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Same(t, f, same)
}

func TestLoadCSVFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kidiq.csv")
	require.NoError(t, os.WriteFile(path, []byte(kidiqSample), 0o644))

	f, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 7, f.NRows())

	_, err = LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestFromRecords(t *testing.T) {
	f, err := FromRecords([]map[string]any{
		{"mom_hs": 1, "mom_iq": 100},
		{"mom_hs": 0, "mom_iq": 85.5},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"mom_hs", "mom_iq"}, f.Names())
	iq, err := f.Numeric("mom_iq")
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 85.5}, iq)

	_, err = FromRecords(nil)
	assert.Error(t, err)
}

func TestRowsSubsets(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(kidiqSample))
	require.NoError(t, err)
	sub := f.Rows([]int{2, 0})
	score, err := sub.Numeric("kid_score")
	require.NoError(t, err)
	assert.Equal(t, []float64{85, 65}, score)
}
