package lhagrid

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a malformed member file. Block 0 is the header; subgrid
// blocks are numbered from 1 in file order.
type ParseError struct {
	Path  string
	Block int
	Line  int
	Msg   string
	Err   error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("lhagrid: ")
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "block %d, line %d: %s", e.Block, e.Line, e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func isSeparator(line []byte) bool {
	return bytes.HasPrefix(line, []byte(separator))
}

// lineReader walks data one line at a time, keeping the 1-based number of
// the last line returned.
type lineReader struct {
	data []byte
	pos  int
	line int
}

func (r *lineReader) next() ([]byte, bool) {
	if r.pos >= len(r.data) {
		return nil, false
	}
	rest := r.data[r.pos:]
	end := bytes.IndexByte(rest, '\n')
	if end < 0 {
		end = len(rest)
		r.pos = len(r.data)
	} else {
		r.pos += end + 1
	}
	r.line++
	return bytes.TrimSuffix(rest[:end], []byte("\r")), true
}

// block collects lines up to the next separator. terminated is false when
// the input ended first.
func (r *lineReader) block() (lines [][]byte, first int, terminated bool) {
	first = r.line + 1
	for {
		line, ok := r.next()
		if !ok {
			return lines, first, false
		}
		if isSeparator(line) {
			return lines, first, true
		}
		lines = append(lines, line)
	}
}

func blank(lines [][]byte) bool {
	for _, l := range lines {
		if len(bytes.TrimSpace(l)) != 0 {
			return false
		}
	}
	return true
}

// Parse decodes a complete member file.
func Parse(data []byte) (*Member, error) {
	r := &lineReader{data: data}

	headerEnd := -1
	for {
		off := r.pos
		line, ok := r.next()
		if !ok {
			break
		}
		if isSeparator(line) {
			headerEnd = off
			break
		}
	}
	if headerEnd < 0 {
		return nil, &ParseError{Block: 0, Line: r.line, Msg: "header separator " + strconv.Quote(separator) + " not found"}
	}
	header, err := parseHeader(data[:headerEnd])
	if err != nil {
		return nil, err
	}

	m := &Member{Header: header}
	for block := 1; ; block++ {
		lines, first, terminated := r.block()
		if !terminated && blank(lines) {
			break
		}
		sg, err := parseSubgrid(lines, block, first)
		if err != nil {
			return nil, err
		}
		m.Subgrids = append(m.Subgrids, sg)
		if !terminated {
			break
		}
	}
	return m, nil
}

func parseSubgrid(lines [][]byte, block, first int) (Subgrid, error) {
	fail := func(offset int, msg string, err error) error {
		return &ParseError{Block: block, Line: first + offset, Msg: msg, Err: err}
	}
	if len(lines) < 3 {
		return Subgrid{}, fail(len(lines), fmt.Sprintf("truncated block: want x, Q and flavor records, got %d record(s)", len(lines)), nil)
	}

	var sg Subgrid
	var err error
	if sg.X, err = parseNodes(lines[0]); err != nil {
		return Subgrid{}, fail(0, "x nodes", err)
	}
	if sg.Q, err = parseNodes(lines[1]); err != nil {
		return Subgrid{}, fail(1, "Q nodes", err)
	}
	if sg.Flavors, err = parseFlavors(lines[2]); err != nil {
		return Subgrid{}, fail(2, "flavor ids", err)
	}

	want := sg.Rows() * sg.Cols()
	sg.Values = make([]float64, 0, want)
	for i, line := range lines[3:] {
		for _, field := range strings.Fields(string(line)) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Subgrid{}, fail(3+i, "grid value", err)
			}
			sg.Values = append(sg.Values, v)
		}
	}
	if len(sg.Values) != want {
		return Subgrid{}, fail(len(lines), fmt.Sprintf("got %d values, want %d (%d x * %d Q * %d flavors)",
			len(sg.Values), want, len(sg.X), len(sg.Q), len(sg.Flavors)), nil)
	}
	return sg, nil
}

func parseNodes(line []byte) ([]float64, error) {
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return nil, errors.New("empty record")
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		if i > 0 && v <= out[i-1] {
			return nil, fmt.Errorf("node %d (%s) is not strictly ascending", i, f)
		}
		out[i] = v
	}
	return out, nil
}

func parseFlavors(line []byte) ([]int, error) {
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return nil, errors.New("empty record")
	}
	out := make([]int, len(fields))
	seen := make(map[int]bool, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if seen[v] {
			return nil, fmt.Errorf("duplicate flavor id %d", v)
		}
		seen[v] = true
		out[i] = v
	}
	return out, nil
}

// ReadHeader reads only the header block from r, stopping at the first
// separator line. Nothing after the separator is interpreted.
func ReadHeader(r io.Reader) (Header, error) {
	br := bufio.NewReader(r)
	var raw []byte
	for line := 1; ; line++ {
		chunk, err := br.ReadBytes('\n')
		if isSeparator(chunk) {
			return parseHeader(raw)
		}
		raw = append(raw, chunk...)
		if err == io.EOF {
			return Header{}, &ParseError{Block: 0, Line: line, Msg: "header separator " + strconv.Quote(separator) + " not found"}
		}
		if err != nil {
			return Header{}, err
		}
	}
}

func parseHeader(raw []byte) (Header, error) {
	h, err := NewHeader(raw)
	if err != nil {
		return Header{}, &ParseError{Block: 0, Line: 1, Msg: "invalid header", Err: err}
	}
	return h, nil
}
