// Package lhagrid reads and writes single members of an LHAPDF "lhagrid1"
// grid set.
//
// A member file is a header block followed by subgrid blocks, each block
// terminated by a line starting with "---":
//
//	PdfType: replica
//	Format: lhagrid1
//	---
//	1.0000000E-09 1.0000000E-08 ...
//	1.6500000E+00 1.7000000E+00 ...
//	-5 -4 -3 -2 -1 1 2 3 4 5 21
//	 1.2345670E-01  2.3456780E-01 ...
//	---
//
// Members written by this package are byte-for-byte reproducible: parsing
// and re-encoding a file produced by Member.Bytes yields the same bytes.
package lhagrid

import (
	"io"
	"strconv"
)

const (
	separator = "---"

	// valueWidth is the fixed field width of a grid value, matching the
	// "%14.7E" layout expected by LHAPDF readers.
	valueWidth = 14
	precision  = 7
)

// Subgrid is one rectangular (x, Q, flavor) block of a member.
type Subgrid struct {
	X       []float64
	Q       []float64
	Flavors []int
	// Values holds len(X)*len(Q) rows of len(Flavors) columns, flattened
	// row-major. Rows run over x then Q, with x varying slowest.
	Values []float64
}

// Rows returns the number of value rows, len(X)*len(Q).
func (s *Subgrid) Rows() int {
	return len(s.X) * len(s.Q)
}

// Cols returns the number of value columns, len(Flavors).
func (s *Subgrid) Cols() int {
	return len(s.Flavors)
}

// Row returns the values of row r. The returned slice aliases Values.
func (s *Subgrid) Row(r int) []float64 {
	n := s.Cols()
	return s.Values[r*n : (r+1)*n]
}

// At returns the value at node (ix, iq) for flavor column ifl.
func (s *Subgrid) At(ix, iq, ifl int) float64 {
	return s.Values[(ix*len(s.Q)+iq)*s.Cols()+ifl]
}

// Member is one parsed member file.
type Member struct {
	Header   Header
	Subgrids []Subgrid
}

// Bytes encodes m in lhagrid1 layout.
func (m *Member) Bytes() []byte {
	return m.AppendTo(nil)
}

// WriteTo writes the encoded member to w.
func (m *Member) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.Bytes())
	return int64(n), err
}

// AppendTo appends the encoded member to b and returns the extended buffer.
func (m *Member) AppendTo(b []byte) []byte {
	b = append(b, m.Header.Raw()...)
	b = append(b, separator...)
	for i := range m.Subgrids {
		b = m.Subgrids[i].appendTo(b)
		b = append(b, separator...)
	}
	return b
}

func (s *Subgrid) appendTo(b []byte) []byte {
	b = append(b, '\n')
	for _, x := range s.X {
		b = strconv.AppendFloat(b, x, 'E', precision, 64)
		b = append(b, ' ')
	}
	b = append(b, '\n')
	for _, q := range s.Q {
		b = strconv.AppendFloat(b, q, 'E', precision, 64)
		b = append(b, ' ')
	}
	b = append(b, '\n')
	for _, f := range s.Flavors {
		b = strconv.AppendInt(b, int64(f), 10)
		b = append(b, ' ')
	}
	b = append(b, '\n', ' ')

	cols := s.Cols()
	var scratch [32]byte
	for r := 0; r < s.Rows(); r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				b = append(b, ' ')
			}
			num := strconv.AppendFloat(scratch[:0], s.Values[r*cols+c], 'E', precision, 64)
			for pad := len(num); pad < valueWidth; pad++ {
				b = append(b, ' ')
			}
			b = append(b, num...)
		}
		b = append(b, '\n')
	}
	return b
}
