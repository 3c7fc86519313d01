package replica

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcscales/internal/lhagrid"
)

func member(vals ...float64) *lhagrid.Member {
	return &lhagrid.Member{
		Header: lhagrid.MustHeader("PdfType: replica\nFormat: lhagrid1\nmcscales_fac_multiplier: 1.0\n"),
		Subgrids: []lhagrid.Subgrid{
			{
				X:       []float64{1e-5, 0.5},
				Q:       []float64{1.65},
				Flavors: []int{1, 21},
				Values:  vals[:4],
			},
			{
				X:       []float64{0.5},
				Q:       []float64{1.65, 100},
				Flavors: []int{21},
				Values:  vals[4:6],
			},
		},
	}
}

func TestAverageScenario(t *testing.T) {
	got, err := Average([]*lhagrid.Member{
		member(1, 10, -1, 0, 0.5, 7),
		member(2, 20, -2, 0, 0.5, 8),
		member(3, 30, -3, 0, 0.5, 9),
	})
	require.NoError(t, err)

	assert.Equal(t, CentralHeader.Raw(), got.Header.Raw())
	assert.False(t, got.Header.Has("mcscales_fac_multiplier"))
	assert.Equal(t, []float64{2, 20, -2, 0}, got.Subgrids[0].Values)
	assert.Equal(t, []float64{0.5, 8}, got.Subgrids[1].Values)
	assert.Equal(t, 2.0, got.Subgrids[0].At(0, 0, 0))
}

func TestAverageIdentity(t *testing.T) {
	one := member(0.1, 0.2, 0.3, 1.0/3, 1e-7, 12345.678)
	members := make([]*lhagrid.Member, 7)
	for i := range members {
		members[i] = one
	}
	got, err := Average(members)
	require.NoError(t, err)
	for s := range one.Subgrids {
		assert.InDeltaSlice(t, one.Subgrids[s].Values, got.Subgrids[s].Values, 1e-12)
	}

	// At the precision of the file format the identity is exact.
	want := &lhagrid.Member{Header: CentralHeader, Subgrids: one.Subgrids}
	assert.Equal(t, string(want.Bytes()), string(got.Bytes()))
}

func TestAverageIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	members := make([]*lhagrid.Member, 25)
	for i := range members {
		vals := make([]float64, 6)
		for j := range vals {
			vals[j] = rng.NormFloat64() * math.Pow(10, float64(rng.Intn(10)-5))
		}
		members[i] = member(vals...)
	}

	base, err := Average(members)
	require.NoError(t, err)

	for trial := 0; trial < 5; trial++ {
		shuffled := append([]*lhagrid.Member(nil), members...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Average(shuffled)
		require.NoError(t, err)
		if diff := cmp.Diff(base.Subgrids, got.Subgrids); diff != "" {
			t.Fatalf("trial %d: result depends on order (-base +got):\n%s", trial, diff)
		}
	}
}

func TestAverageDoesNotAliasInput(t *testing.T) {
	in := member(1, 2, 3, 4, 5, 6)
	got, err := Average([]*lhagrid.Member{in})
	require.NoError(t, err)
	got.Subgrids[0].X[0] = 42
	got.Subgrids[0].Values[0] = 42
	assert.Equal(t, 1e-5, in.Subgrids[0].X[0])
	assert.Equal(t, 1.0, in.Subgrids[0].Values[0])
}

func TestAverageStructuralMismatch(t *testing.T) {
	ref := member(1, 2, 3, 4, 5, 6)

	fewer := member(1, 2, 3, 4, 5, 6)
	fewer.Subgrids = fewer.Subgrids[:1]

	otherX := member(1, 2, 3, 4, 5, 6)
	otherX.Subgrids[1].X = []float64{0.6}

	otherQ := member(1, 2, 3, 4, 5, 6)
	otherQ.Subgrids[0].Q = []float64{2.0}

	otherFlavors := member(1, 2, 3, 4, 5, 6)
	otherFlavors.Subgrids[0].Flavors = []int{2, 21}

	tests := []struct {
		name    string
		other   *lhagrid.Member
		subgrid int
		field   string
	}{
		{"subgrid count", fewer, -1, "subgrid count"},
		{"x nodes", otherX, 1, "x nodes"},
		{"q nodes", otherQ, 0, "Q nodes"},
		{"flavors", otherFlavors, 0, "flavor ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Average([]*lhagrid.Member{ref, ref, tt.other})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructuralMismatch))

			var me *MismatchError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, 2, me.Member)
			assert.Equal(t, tt.subgrid, me.Subgrid)
			assert.Equal(t, tt.field, me.Field)
			assert.Contains(t, err.Error(), "headers or grids do not match")
		})
	}
}

func TestAverageNullResult(t *testing.T) {
	_, err := Average([]*lhagrid.Member{
		member(1, 2, 3, 4, 5, 6),
		member(1, 2, math.NaN(), 4, 5, 6),
	})
	require.ErrorIs(t, err, ErrNullResult)
	assert.Contains(t, err.Error(), "subgrid 0, row 1, flavor 1")

	_, err = Average([]*lhagrid.Member{
		member(1, 2, 3, 4, 5, math.Inf(1)),
		member(1, 2, 3, 4, 5, math.Inf(-1)),
	})
	require.ErrorIs(t, err, ErrNullResult)
}

func TestAverageNearFloatLimit(t *testing.T) {
	got, err := Average([]*lhagrid.Member{
		member(1.5e308, 1, 2, 3, 4, -1.5e308),
		member(1.5e308, 3, 4, 5, 6, -1.5e308),
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5e308, 2, 3, 4}, got.Subgrids[0].Values)
	assert.Equal(t, []float64{5, -1.5e308}, got.Subgrids[1].Values)
}

func TestAverageEmpty(t *testing.T) {
	_, err := Average(nil)
	assert.ErrorIs(t, err, ErrNoMembers)
}
