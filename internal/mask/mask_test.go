package mask

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
	"github.com/jsdoublel/orthoprune/internal/newick"
)

func parse(t *testing.T, nwk string) *gr.Tree {
	t.Helper()
	tre, err := newick.Parse(nwk)
	if err != nil {
		t.Fatalf("invalid newick tree; test is written wrong: %v", err)
	}
	return tre
}

func TestMonophyletic(t *testing.T) {
	testCases := []struct {
		name     string
		nwk      string
		scores   Informativeness
		masked   int
		expected string
	}{
		{
			name:     "more informative sibling kept",
			nwk:      "((A@1:0.1,A@2:0.1,B@1:0.1)x:0.2,C@1:0.3,D@1:0.4);",
			scores:   Informativeness{"A@1": 50, "A@2": 80},
			masked:   1,
			expected: "((A@2:0.1,B@1:0.1)x:0.2,C@1:0.3,D@1:0.4);\n",
		},
		{
			name:     "cherry collapses into a tip",
			nwk:      "((A@1:0.1,A@2:0.2)x:0.5,B@1:1,C@1:1);",
			scores:   Informativeness{"A@1": 50, "A@2": 80},
			masked:   1,
			expected: "(A@2:0.7,B@1:1,C@1:1);\n",
		},
		{
			name:     "tie keeps first tip",
			nwk:      "((A@1,A@2)x,B@1,C@1);",
			scores:   Informativeness{"A@1": 10, "A@2": 10},
			masked:   1,
			expected: "(A@1,B@1,C@1);\n",
		},
		{
			name:     "several rounds",
			nwk:      "((A@1,A@2,A@3)x,B@1,(C@1,C@2)y,D@1);",
			scores:   Informativeness{"A@1": 10, "A@2": 30, "A@3": 20, "C@1": 5, "C@2": 5},
			masked:   3,
			expected: "(A@2,B@1,C@1,D@1);\n",
		},
		{
			name:     "too few tips",
			nwk:      "(A@1,A@2,B@1);",
			scores:   Informativeness{"A@1": 10, "A@2": 30},
			masked:   0,
			expected: "(A@1,A@2,B@1);\n",
		},
		{
			name:     "paraphyletic copies are left alone",
			nwk:      "(((A@1,B@1)x,A@2)y,C@1,D@1);",
			scores:   Informativeness{},
			masked:   0,
			expected: "(((A@1,B@1)x,A@2)y,C@1,D@1);\n",
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre := parse(t, test.nwk)
			masked, err := Monophyletic(tre, test.scores)
			require.NoError(t, err)
			require.NoError(t, tre.Validate())
			assert.Equal(t, test.masked, masked)
			assert.Equal(t, test.expected, newick.String(tre))
		})
	}
}

func TestMonophyleticIdempotent(t *testing.T) {
	tre := parse(t, "(((A@1,A@2)x,(B@1,B@2,C@1)y)z,(D@1,D@2)w,E@1);")
	scores := Informativeness{"A@1": 3, "A@2": 9, "B@1": 7, "B@2": 2, "D@1": 1, "D@2": 1}
	masked, err := Monophyletic(tre, scores)
	require.NoError(t, err)
	assert.Equal(t, 3, masked)
	once := newick.String(tre)
	masked, err = Monophyletic(tre, scores)
	require.NoError(t, err)
	assert.Zero(t, masked)
	assert.Equal(t, once, newick.String(tre))
}

func TestParaphyletic(t *testing.T) {
	testCases := []struct {
		name     string
		nwk      string
		scores   Informativeness
		masked   int
		expected string
	}{
		{
			name:     "aunt tip removed",
			nwk:      "(((A@1,B@1)x,A@2)y,C@1,D@1);",
			scores:   Informativeness{"A@1": 10, "A@2": 5},
			masked:   1,
			expected: "((A@1,B@1)x,C@1,D@1);\n",
		},
		{
			name:     "nephew tip removed",
			nwk:      "(((A@1,B@1)x,A@2)y,C@1,D@1);",
			scores:   Informativeness{"A@1": 10, "A@2": 20},
			masked:   1,
			expected: "((B@1,A@2)y,C@1,D@1);\n",
		},
		{
			name:     "aunt under the root",
			nwk:      "((A@1,B@1)x,A@2,C@1,D@1);",
			scores:   Informativeness{"A@1": 5, "A@2": 1},
			masked:   1,
			expected: "((A@1,B@1)x,C@1,D@1);\n",
		},
		{
			name:     "no paraphyletic copies",
			nwk:      "((A@1,B@1)x,(A@2,C@1)y,D@1);",
			scores:   Informativeness{},
			masked:   0,
			expected: "((A@1,B@1)x,(A@2,C@1)y,D@1);\n",
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre := parse(t, test.nwk)
			masked, err := Paraphyletic(tre, test.scores)
			require.NoError(t, err)
			assert.Equal(t, test.masked, masked)
			assert.Equal(t, test.expected, newick.String(tre))
		})
	}
}

func TestMask(t *testing.T) {
	tre := parse(t, "(((A@1,A@3)u,(B@1,A@2)x)y,C@1,D@1);")
	scores := Informativeness{"A@1": 4, "A@2": 1, "A@3": 6}
	masked, err := Mask(tre, scores, false)
	require.NoError(t, err)
	assert.Equal(t, 1, masked)
	assert.Equal(t, "((A@3,(B@1,A@2)x)y,C@1,D@1);\n", newick.String(tre))

	tre = parse(t, "(((A@1,A@3)u,(B@1,A@2)x)y,C@1,D@1);")
	masked, err = Mask(tre, scores, true)
	require.NoError(t, err)
	assert.Equal(t, 2, masked)
	require.NoError(t, tre.Validate())
	assert.Equal(t, "((A@3,B@1)y,C@1,D@1);\n", newick.String(tre))
}

func TestMissingScore(t *testing.T) {
	tre := parse(t, "((A@1,A@2)x,B@1,C@1);")
	_, err := Monophyletic(tre, Informativeness{"A@1": 3})
	assert.True(t, errors.Is(err, ErrMissingScore))
}

func TestMonophyleticRepairsInputKinks(t *testing.T) {
	tre := parse(t, "(((A@1,A@2)x),B@1,C@1,D@1);")
	masked, err := Monophyletic(tre, Informativeness{"A@1": 3, "A@2": 9})
	require.NoError(t, err)
	assert.Equal(t, 1, masked)
	require.NoError(t, tre.Validate())
	assert.Equal(t, "(A@2,B@1,C@1,D@1);\n", newick.String(tre))
}
