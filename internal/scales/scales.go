// Package scales groups and filters the replicas of a scale-tagged set by
// the factorisation and renormalisation multipliers in their headers.
package scales

import (
	"fmt"

	"mcscales/internal/lhagrid"
)

const (
	// FacKey is the header key holding a replica's factorisation multiplier.
	FacKey = "mcscales_fac_multiplier"
	// RenKeyPrefix followed by a process name is the header key holding the
	// renormalisation multiplier used for that process.
	RenKeyPrefix = "mcscales_ren_multiplier_"
)

// KnownProcesses are the process names replicas can be tagged with.
var KnownProcesses = []string{"DIS NC", "DIS CC", "DY", "JETS", "TOP"}

// Ensemble is a set of members whose replica headers can be read. Len
// counts member 0, which is never grouped.
type Ensemble interface {
	Len() (int, error)
	Header(id int) (lhagrid.Header, error)
	Processes() ([]string, error)
}

// RenKey returns the header key of the renormalisation multiplier for
// process.
func RenKey(process string) string {
	return RenKeyPrefix + process
}

// FacGroup holds the replicas sharing one factorisation multiplier.
type FacGroup struct {
	Fac     float64
	Indexes []int
}

// FacRenGroup holds the replicas sharing one (factorisation,
// renormalisation) pair for a process.
type FacRenGroup struct {
	Fac     float64
	Ren     float64
	Indexes []int
}

// Pair is a (factorisation, renormalisation) multiplier combination.
type Pair struct {
	Fac float64
	Ren float64
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s)", FormatMultiplier(p.Fac), FormatMultiplier(p.Ren))
}

// GroupByFac buckets replicas 1..Len-1 by factorisation multiplier. Groups
// appear in the order their value is first seen and list indexes ascending.
func GroupByFac(set Ensemble) ([]FacGroup, error) {
	var groups []FacGroup
	pos := make(map[float64]int)
	err := eachReplica(set, func(id int, h lhagrid.Header) error {
		fac, err := h.Float(FacKey)
		if err != nil {
			return err
		}
		k, ok := pos[fac]
		if !ok {
			k = len(groups)
			pos[fac] = k
			groups = append(groups, FacGroup{Fac: fac})
		}
		groups[k].Indexes = append(groups[k].Indexes, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GroupByFacAndRen buckets replicas by their factorisation multiplier and the
// renormalisation multiplier of process, with the ordering of GroupByFac.
func GroupByFacAndRen(set Ensemble, process string) ([]FacRenGroup, error) {
	var groups []FacRenGroup
	pos := make(map[Pair]int)
	err := eachReplica(set, func(id int, h lhagrid.Header) error {
		p, err := pairFor(h, process)
		if err != nil {
			return err
		}
		k, ok := pos[p]
		if !ok {
			k = len(groups)
			pos[p] = k
			groups = append(groups, FacRenGroup{Fac: p.Fac, Ren: p.Ren})
		}
		groups[k].Indexes = append(groups[k].Indexes, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// DropBannedCombinations returns, ascending, the replicas for which no
// declared process has a (fac, ren) pair in banned.
func DropBannedCombinations(set Ensemble, banned []Pair) ([]int, error) {
	processes, err := set.Processes()
	if err != nil {
		return nil, err
	}
	ban := make(map[Pair]bool, len(banned))
	for _, p := range banned {
		ban[p] = true
	}

	surviving := []int{}
	err = eachReplica(set, func(id int, h lhagrid.Header) error {
		for _, process := range processes {
			p, err := pairFor(h, process)
			if err != nil {
				return err
			}
			if ban[p] {
				return nil
			}
		}
		surviving = append(surviving, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return surviving, nil
}

func pairFor(h lhagrid.Header, process string) (Pair, error) {
	fac, err := h.Float(FacKey)
	if err != nil {
		return Pair{}, err
	}
	ren, err := h.Float(RenKey(process))
	if err != nil {
		return Pair{}, err
	}
	return Pair{Fac: fac, Ren: ren}, nil
}

func eachReplica(set Ensemble, fn func(id int, h lhagrid.Header) error) error {
	n, err := set.Len()
	if err != nil {
		return err
	}
	for id := 1; id < n; id++ {
		h, err := set.Header(id)
		if err != nil {
			return fmt.Errorf("replica %d: %w", id, err)
		}
		if err := fn(id, h); err != nil {
			return fmt.Errorf("replica %d: %w", id, err)
		}
	}
	return nil
}
