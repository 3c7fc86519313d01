// Package replica derives aggregate members from a list of replicas.
package replica

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mcscales/internal/lhagrid"
)

// CentralHeader is the header written on every averaged member 0.
var CentralHeader = lhagrid.MustHeader("PdfType: central\nFormat: lhagrid1\n")

var (
	// ErrNoMembers is returned when Average is called with an empty list.
	ErrNoMembers = errors.New("no members to average")

	// ErrStructuralMismatch is wrapped by every MismatchError.
	ErrStructuralMismatch = errors.New("replica grids are not aligned")

	// ErrNullResult is returned when the mean at some coordinate is NaN or
	// infinite.
	ErrNullResult = errors.New("null values found in averaged grid")
)

// MismatchError describes the first structural difference between member 0
// of the input and another member. Members and subgrids are 0-based
// positions in the input.
type MismatchError struct {
	Member  int
	Subgrid int // -1 when the subgrid counts differ
	Field   string
	Want    string
	Got     string
}

func (e *MismatchError) Error() string {
	where := fmt.Sprintf("member %d", e.Member)
	if e.Subgrid >= 0 {
		where += fmt.Sprintf(", subgrid %d", e.Subgrid)
	}
	return fmt.Sprintf("%s: %s differs (want %s, got %s); this usually means the replica headers or grids do not match",
		where, e.Field, e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrStructuralMismatch
}

// Average returns a new central member whose values are the arithmetic mean
// of members at every (subgrid, row, column) coordinate. All members must
// have identical node sequences and flavor ids in every subgrid.
//
// Each coordinate is averaged over its sorted values, so the result does not
// depend on the order of members.
func Average(members []*lhagrid.Member) (*lhagrid.Member, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	ref := members[0]
	for i, m := range members[1:] {
		if err := compareLayout(ref, m); err != nil {
			err.Member = i + 1
			return nil, err
		}
	}

	out := &lhagrid.Member{
		Header:   CentralHeader,
		Subgrids: make([]lhagrid.Subgrid, len(ref.Subgrids)),
	}
	column := make([]float64, len(members))
	for s := range ref.Subgrids {
		src := &ref.Subgrids[s]
		dst := lhagrid.Subgrid{
			X:       slices.Clone(src.X),
			Q:       slices.Clone(src.Q),
			Flavors: slices.Clone(src.Flavors),
			Values:  make([]float64, len(src.Values)),
		}
		for k := range dst.Values {
			for i, m := range members {
				column[i] = m.Subgrids[s].Values[k]
			}
			sort.Float64s(column)
			mean := stat.Mean(column, nil)
			if math.IsInf(mean, 0) && !floats.HasNaN(column) && !math.IsInf(column[0], 0) && !math.IsInf(column[len(column)-1], 0) {
				mean = scaledMean(column)
			}
			if math.IsNaN(mean) || math.IsInf(mean, 0) {
				row, col := k/dst.Cols(), k%dst.Cols()
				return nil, fmt.Errorf("subgrid %d, row %d, flavor %d: %w; this may indicate that the headers don't match",
					s, row, dst.Flavors[col], ErrNullResult)
			}
			dst.Values[k] = mean
		}
		out.Subgrids[s] = dst
	}
	return out, nil
}

// scaledMean divides before summing so that finite values near the float64
// limit do not overflow.
func scaledMean(sorted []float64) float64 {
	n := float64(len(sorted))
	var sum float64
	for _, v := range sorted {
		sum += v / n
	}
	return sum
}

func compareLayout(ref, m *lhagrid.Member) *MismatchError {
	if len(ref.Subgrids) != len(m.Subgrids) {
		return &MismatchError{
			Subgrid: -1,
			Field:   "subgrid count",
			Want:    fmt.Sprint(len(ref.Subgrids)),
			Got:     fmt.Sprint(len(m.Subgrids)),
		}
	}
	for s := range ref.Subgrids {
		a, b := &ref.Subgrids[s], &m.Subgrids[s]
		switch {
		case !floats.Equal(a.X, b.X):
			return &MismatchError{Subgrid: s, Field: "x nodes", Want: describe(a.X), Got: describe(b.X)}
		case !floats.Equal(a.Q, b.Q):
			return &MismatchError{Subgrid: s, Field: "Q nodes", Want: describe(a.Q), Got: describe(b.Q)}
		case !slices.Equal(a.Flavors, b.Flavors):
			return &MismatchError{Subgrid: s, Field: "flavor ids", Want: fmt.Sprint(a.Flavors), Got: fmt.Sprint(b.Flavors)}
		case len(a.Values) != len(b.Values):
			return &MismatchError{Subgrid: s, Field: "value count", Want: fmt.Sprint(len(a.Values)), Got: fmt.Sprint(len(b.Values))}
		}
	}
	return nil
}

func describe(nodes []float64) string {
	if len(nodes) == 0 {
		return "[]"
	}
	return fmt.Sprintf("%d nodes [%g .. %g]", len(nodes), nodes[0], nodes[len(nodes)-1])
}
