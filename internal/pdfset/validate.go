package pdfset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"

	"mcscales/internal/lhagrid"
)

// ValidationError is an expected, user-facing failure: a malformed or
// missing set, a destination collision, or an unusable selection.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalid builds a ValidationError for path.
func Invalid(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that path is a well-formed, scale-tagged grid set and
// returns it. The first failing check determines the error.
func Validate(path string) (*Set, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if !isFile(s.InfoPath()) {
		return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. Info file %s is not a file.", s.path, s.InfoPath())
	}
	if !isFile(s.MemberPath(0)) {
		return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. Member 0 %s is not a file.", s.path, s.MemberPath(0))
	}

	info, err := s.Info()
	if err != nil {
		return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. %v", s.path, err)
	}
	n, err := info.NumMembers()
	if err != nil {
		return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. %v", s.path, err)
	}
	if _, err := lhagrid.ReadFile(s.MemberPath(0)); err != nil {
		return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. %v", s.path, err)
	}

	if !info.Has(keyProcesses) {
		return nil, Invalid(s.path, "%s is not a MCscales grid. Key '%s' not found in the info file.", s.Name(), keyProcesses)
	}

	for id := 1; id < n; id++ {
		if !isFile(s.MemberPath(id)) {
			return nil, Invalid(s.path, "%s is not a valid LHAPDF grid. %s declares %d members but %s is not a file.",
				s.path, keyNumMembers, n, s.MemberPath(id))
		}
	}
	return s, nil
}

// Locate resolves a set argument. A path naming an existing directory is
// returned as is; a bare name is looked up in each search path in order.
// When nothing matches, arg is returned unchanged so that validation
// reports it.
func Locate(arg string, searchPaths []string) string {
	if isDir(arg) || strings.ContainsRune(arg, filepath.Separator) {
		return arg
	}
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		expanded, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		if candidate := filepath.Join(expanded, arg); isDir(candidate) {
			return candidate
		}
	}
	return arg
}

// destinationFree reports a ValidationError if path already exists.
func destinationFree(path string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return Invalid(path, "Path %s already exists. Please delete it before proceeding.", path)
	case os.IsNotExist(err):
		return nil
	default:
		return err
	}
}
