package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stjude-rust-labs/atlas-go/quantify"
)

const starTestData = `# gene-model: GENCODE v46
gene_id	gene_name	gene_type	unstranded	stranded_first	stranded_second
N_unmapped			0	0	0
N_multimapping			0	0	0
N_noFeature			0	0	0
N_ambiguous			0	0	0
A0.1	f0	protein_coding	21	13	8
A1.1	f1	protein_coding	89	55	34
`

func TestReadStarGeneCountsUnstranded(t *testing.T) {
	names, counts, err := ReadStarGeneCounts(strings.NewReader(starTestData), "gene_name", quantify.StrandUnstranded)
	require.NoError(t, err)
	assert.Equal(t, []string{"f0", "f1"}, names)
	assert.Equal(t, []uint64{21, 89}, counts)
}

func TestReadStarGeneCountsForward(t *testing.T) {
	names, counts, err := ReadStarGeneCounts(strings.NewReader(starTestData), "gene_name", quantify.StrandSpecForward)
	require.NoError(t, err)
	assert.Equal(t, []string{"f0", "f1"}, names)
	assert.Equal(t, []uint64{13, 55}, counts)
}

func TestReadStarGeneCountsReverseByGeneID(t *testing.T) {
	names, counts, err := ReadStarGeneCounts(strings.NewReader(starTestData), "gene_id", quantify.StrandSpecReverse)
	require.NoError(t, err)
	assert.Equal(t, []string{"A0.1", "A1.1"}, names)
	assert.Equal(t, []uint64{8, 34}, counts)
}

func TestReadStarGeneCountsInvalidFeatureName(t *testing.T) {
	_, _, err := ReadStarGeneCounts(strings.NewReader(starTestData), "bogus", quantify.StrandUnstranded)
	assert.Error(t, err)
}
