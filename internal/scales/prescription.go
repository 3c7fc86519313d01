package scales

import (
	"errors"
	"fmt"
	"strings"
)

// Prescription names a point prescription.
type Prescription string

const (
	ThreePoint   Prescription = "3 point"
	FivePoint    Prescription = "5 point"
	FiveBarPoint Prescription = "5bar point"
	SevenPoint   Prescription = "7 point"
	// Custom is accepted as a name but has no rule set.
	Custom Prescription = "custom"
)

// ErrCustomPrescription is returned by Banned for Custom.
var ErrCustomPrescription = errors.New("custom point prescription has no rule set; edit the banned combinations to implement one")

var banned = map[Prescription][]Pair{
	ThreePoint:   {{0.5, 1}, {0.5, 2}, {1, 0.5}, {1, 2}, {2, 0.5}, {2, 1}},
	FivePoint:    {{0.5, 0.5}, {0.5, 2}, {2, 0.5}, {2, 2}},
	FiveBarPoint: {{0.5, 1}, {1, 0.5}, {1, 2}, {2, 1}},
	SevenPoint:   {{0.5, 2}, {2, 0.5}},
}

// Prescriptions lists every accepted prescription name.
func Prescriptions() []Prescription {
	return []Prescription{ThreePoint, FivePoint, FiveBarPoint, SevenPoint, Custom}
}

// ParsePrescription returns the prescription called s.
func ParsePrescription(s string) (Prescription, error) {
	for _, p := range Prescriptions() {
		if string(p) == s {
			return p, nil
		}
	}
	names := make([]string, 0, len(Prescriptions()))
	for _, p := range Prescriptions() {
		names = append(names, fmt.Sprintf("%q", p))
	}
	return "", fmt.Errorf("unknown point prescription %q, want one of %s", s, strings.Join(names, ", "))
}

// Banned returns a copy of the (fac, ren) pairs the prescription discards.
func (p Prescription) Banned() ([]Pair, error) {
	if p == Custom {
		return nil, ErrCustomPrescription
	}
	pairs, ok := banned[p]
	if !ok {
		return nil, fmt.Errorf("unknown point prescription %q", string(p))
	}
	return append([]Pair(nil), pairs...), nil
}
