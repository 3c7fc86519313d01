// Package gridfixture writes small, fully valid grid sets for tests.
package gridfixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"mcscales/internal/lhagrid"
	"mcscales/internal/replica"
)

// Replica describes one replica of a fixture set.
type Replica struct {
	Fac float64
	// Ren maps a process name to its renormalisation multiplier. Processes
	// of the set missing here default to 1.
	Ren map[string]float64
	// Fill is added to every grid value; value k of the replica is Fill+k.
	Fill float64
}

// Set describes a fixture set. A nil Processes writes a plain LHAPDF set
// without the mcscales_processes key.
type Set struct {
	Name      string
	Processes []string
	Replicas  []Replica
}

// Layout returns the subgrid layout every fixture member shares.
func Layout() []lhagrid.Subgrid {
	return []lhagrid.Subgrid{
		{
			X:       []float64{1e-7, 1e-3, 0.5},
			Q:       []float64{1.65, 10},
			Flavors: []int{-1, 1, 21},
		},
		{
			X:       []float64{1e-3, 0.5},
			Q:       []float64{10, 100, 1000},
			Flavors: []int{-1, 1, 21},
		},
	}
}

// Member builds the member a Replica describes, with header h.
func Member(h lhagrid.Header, fill float64) *lhagrid.Member {
	m := &lhagrid.Member{Header: h, Subgrids: Layout()}
	k := 0
	for i := range m.Subgrids {
		sg := &m.Subgrids[i]
		sg.Values = make([]float64, sg.Rows()*sg.Cols())
		for j := range sg.Values {
			sg.Values[j] = fill + float64(k)
			k++
		}
	}
	return m
}

// ReplicaHeader returns the header text of a tagged replica.
func ReplicaHeader(r Replica, processes []string) string {
	var sb strings.Builder
	sb.WriteString("PdfType: replica\nFormat: lhagrid1\n")
	fmt.Fprintf(&sb, "mcscales_fac_multiplier: %s\n", formatFloat(r.Fac))
	for _, p := range processes {
		ren, ok := r.Ren[p]
		if !ok {
			ren = 1
		}
		fmt.Fprintf(&sb, "mcscales_ren_multiplier_%s: %s\n", p, formatFloat(ren))
	}
	return sb.String()
}

// Info returns the .info document text for s.
func Info(s Set) string {
	var sb strings.Builder
	sb.WriteString("SetDesc: \"Fixture set\"\n")
	sb.WriteString("Authors: Fixture authors\n")
	sb.WriteString("# Grid format\n")
	sb.WriteString("Format: lhagrid1\n")
	sb.WriteString("Flavors: [-1, 1, 21]\n")
	fmt.Fprintf(&sb, "NumMembers: %d\n", len(s.Replicas)+1)
	sb.WriteString("OrderQCD: 2 # NNLO\n")
	if s.Processes != nil {
		sb.WriteString("mcscales_processes: [" + strings.Join(s.Processes, ", ") + "]\n")
	}
	return sb.String()
}

// Write materialises s under dir and returns the set directory. Member 0
// is the average of the replicas.
func Write(t testing.TB, dir string, s Set) string {
	t.Helper()

	root := filepath.Join(dir, s.Name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("create set dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, s.Name+".info"), []byte(Info(s)), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}

	members := make([]*lhagrid.Member, 0, len(s.Replicas))
	for i, r := range s.Replicas {
		h, err := lhagrid.NewHeader([]byte(ReplicaHeader(r, s.Processes)))
		if err != nil {
			t.Fatalf("replica %d header: %v", i+1, err)
		}
		m := Member(h, r.Fill)
		members = append(members, m)
		if err := lhagrid.WriteFile(MemberPath(root, s.Name, i+1), m); err != nil {
			t.Fatalf("write replica %d: %v", i+1, err)
		}
	}

	central := Member(replica.CentralHeader, 0)
	if len(members) > 0 {
		var err error
		if central, err = replica.Average(members); err != nil {
			t.Fatalf("average fixture replicas: %v", err)
		}
	}
	if err := lhagrid.WriteFile(MemberPath(root, s.Name, 0), central); err != nil {
		t.Fatalf("write central member: %v", err)
	}
	return root
}

// MemberPath returns the member file path inside a set directory.
func MemberPath(root, name string, id int) string {
	return filepath.Join(root, fmt.Sprintf("%s_%04d.dat", name, id))
}

// Scales builds a six replica set with two replicas for each factorisation
// multiplier, cycling the TOP renormalisation multiplier.
func Scales(name string) Set {
	facs := []float64{0.5, 1, 2, 0.5, 1, 2}
	rens := []float64{0.5, 1, 2, 2, 1, 0.5}
	s := Set{Name: name, Processes: []string{"DIS NC", "TOP"}}
	for i := range facs {
		s.Replicas = append(s.Replicas, Replica{
			Fac:  facs[i],
			Ren:  map[string]float64{"TOP": rens[i]},
			Fill: float64(i + 1),
		})
	}
	return s
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
