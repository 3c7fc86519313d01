package lhagrid

import (
	"errors"
	"os"
)

// ReadFile parses the member file at path.
func ReadFile(path string) (*Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return m, nil
}

// ReadHeaderFile reads the header block of the member file at path.
func ReadHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return Header{}, withPath(err, path)
	}
	return h, nil
}

// WriteFile encodes m to path, replacing any existing file.
func WriteFile(path string, m *Member) error {
	return os.WriteFile(path, m.Bytes(), 0o644)
}

func withPath(err error, path string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}
