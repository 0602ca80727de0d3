package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRF_CombinesScoresAcrossLists(t *testing.T) {
	dense := []string{"a", "b", "c"}
	sparse := []string{"b", "a", "d"}

	fused := FuseRRF(dense, sparse, 60)
	require.Len(t, fused, 4)

	byID := make(map[string]float64, len(fused))
	for _, f := range fused {
		byID[f.ID] = f.Score
	}

	wantA := 1.0/61.0 + 1.0/62.0 // rank 1 in dense, rank 2 in sparse
	wantB := 1.0/62.0 + 1.0/61.0 // rank 2 in dense, rank 1 in sparse
	assert.InDelta(t, wantA, byID["a"], 1e-12)
	assert.InDelta(t, wantB, byID["b"], 1e-12)
	assert.InDelta(t, wantA, byID["b"], 1e-12) // a and b carry the same total score
}

func TestFuseRRF_DefaultsKWhenNonPositive(t *testing.T) {
	withDefault := FuseRRF([]string{"a"}, nil, 0)
	withExplicit := FuseRRF([]string{"a"}, nil, DefaultRRFConstant)
	require.Len(t, withDefault, 1)
	require.Len(t, withExplicit, 1)
	assert.Equal(t, withExplicit[0].Score, withDefault[0].Score)
}

func TestFuseRRF_OnlyInOneList(t *testing.T) {
	fused := FuseRRF([]string{"a", "b"}, nil, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "b", fused[1].ID)
}

func TestFuseRRF_TiesBreakByDenseRankThenID(t *testing.T) {
	// "y" is rank 1 in dense and rank 2 in sparse, "x" the reverse, so both
	// score 1/61 + 1/62; the better dense rank wins the tie before the
	// lexicographic id (which alone would put "x" first).
	fused := FuseRRF([]string{"y", "x"}, []string{"x", "y"}, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, []string{"y", "x"}, []string{fused[0].ID, fused[1].ID})
}

func TestFuseRRF_DenseOnlyBeatsSparseOnlyAtEqualRank(t *testing.T) {
	// "d" ranked 1 in dense only; "s" ranked 1 in sparse only. Scores tie
	// (1/(60+1) each); dense presence wins the tie-break.
	fused := FuseRRF([]string{"d"}, []string{"s"}, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "d", fused[0].ID)
	assert.Equal(t, "s", fused[1].ID)
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	fused := FuseRRF(nil, nil, 60)
	assert.Empty(t, fused)
}
