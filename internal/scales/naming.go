package scales

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMultiplier renders m the way derived set names carry it: shortest
// decimal form, no fraction for integral values, and "." replaced by "p".
// 0.5 becomes "0p5" and 2.0 becomes "2".
func FormatMultiplier(m float64) string {
	return strings.ReplaceAll(plain(m), ".", "p")
}

func plain(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// FacSetName names the set holding the replicas with multiplier fac.
func FacSetName(set string, fac float64) string {
	return fmt.Sprintf("%s_kF_%s", set, FormatMultiplier(fac))
}

// FacRenSetName names the set holding the replicas of a FacRenGroup.
func FacRenSetName(set string, fac, ren float64, process string) string {
	return fmt.Sprintf("%s_kF_%s_kR_%s_%s", set, FormatMultiplier(fac), underscored(process), FormatMultiplier(ren))
}

// PrescriptionSetName names the set filtered by p.
func PrescriptionSetName(set string, p Prescription) string {
	return set + "_" + underscored(string(p))
}

func FacDescription(set string, fac float64) string {
	return fmt.Sprintf("MCscales set derived from '%s', with all factorisation scales equal to %s.", set, plain(fac))
}

func FacRenDescription(set string, fac, ren float64, process string) string {
	return fmt.Sprintf("MCscales set derived from '%s', with all factorisation scales equal to %s and"+
		" all renormalisation scales for process %s set to %s.", set, plain(fac), process, plain(ren))
}

func PrescriptionDescription(set string, p Prescription) string {
	return fmt.Sprintf("MCscales PDF resulting from filtering %s so as to conform to the %s prescription.", set, p)
}
