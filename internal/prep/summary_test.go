package prep

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rows = []SummaryRow{
	{Tree: "cluster1", Policy: "mo", Tips: 5, Taxa: 4, Masked: 1, Outputs: 1},
	{Tree: "cluster2", Policy: "mo", Tips: 6, Taxa: 3, Rejection: "out-group non-monophyletic"},
	{Tree: "cluster3", Policy: "mo", Tips: 3, Taxa: 1, Rejection: "not enough taxa"},
	{Tree: "cluster4", Policy: "mo", Tips: 4, Taxa: 4, Outputs: 1},
}

func TestWriteSummaryCSV(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteSummaryCSV(rows, &b))
	expected := "tree,policy,tips,taxa,masked,outputs,rejection\n" +
		"cluster1,mo,5,4,1,1,\n" +
		"cluster2,mo,6,3,0,0,out-group non-monophyletic\n" +
		"cluster3,mo,3,1,0,0,not enough taxa\n" +
		"cluster4,mo,4,4,0,1,\n"
	assert.Equal(t, expected, b.String())
}

func TestOutcomeCounts(t *testing.T) {
	outcomes, values := outcomeCounts(rows)
	assert.Equal(t, []string{Accepted, "not enough taxa", "out-group non-monophyletic"}, outcomes)
	assert.Equal(t, []float64{2, 1, 1}, values)
}

func TestWriteSummaryPlot(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "summary")
	require.NoError(t, WriteSummaryPlot(rows, prefix))
	info, err := os.Stat(prefix + ".png")
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Error(t, WriteSummaryPlot(nil, prefix))
}
