// Package pdfset provides directory-backed LHAPDF grid sets: lookup,
// validation, and construction of new sets from replicas of an existing one.
//
// A set named NAME is a directory NAME holding NAME.info and one
// NAME_%04d.dat file per member, member 0 being the central replica.
package pdfset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mcscales/internal/lhagrid"
)

// Set is a grid set on disk. The info document is read on first use and
// cached for the lifetime of the value.
type Set struct {
	path string

	mu   sync.Mutex
	info *Info
}

// Open returns the set rooted at path, which must be a directory.
func Open(path string) (*Set, error) {
	path = filepath.Clean(path)
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return nil, Invalid(path, "%s is not a valid LHAPDF grid. Path is not a directory.", path)
	}
	return &Set{path: path}, nil
}

// Path returns the set directory.
func (s *Set) Path() string { return s.path }

// Name returns the set name, which is the directory base name.
func (s *Set) Name() string { return filepath.Base(s.path) }

// InfoPath returns the path of the set's .info document.
func (s *Set) InfoPath() string {
	return filepath.Join(s.path, s.Name()+".info")
}

// MemberPath returns the path of member id.
func (s *Set) MemberPath(id int) string {
	return memberPath(s.path, s.Name(), id)
}

func memberPath(dir, name string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%04d.dat", name, id))
}

// Info returns the set's info document.
func (s *Set) Info() (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info != nil {
		return s.info, nil
	}
	info, err := ReadInfo(s.InfoPath())
	if err != nil {
		return nil, err
	}
	s.info = info
	return info, nil
}

// Len returns NumMembers, the member count including member 0.
func (s *Set) Len() (int, error) {
	info, err := s.Info()
	if err != nil {
		return 0, err
	}
	return info.NumMembers()
}

// Processes returns the processes declared by a scale-tagged set.
func (s *Set) Processes() ([]string, error) {
	info, err := s.Info()
	if err != nil {
		return nil, err
	}
	return info.Processes()
}

// Header reads only the header block of member id.
func (s *Set) Header(id int) (lhagrid.Header, error) {
	return lhagrid.ReadHeaderFile(s.MemberPath(id))
}

// Member reads and parses member id.
func (s *Set) Member(id int) (*lhagrid.Member, error) {
	return lhagrid.ReadFile(s.MemberPath(id))
}

// IsValid reports whether the set directory, its info document and its
// central member are all present.
func (s *Set) IsValid() bool {
	return isDir(s.path) && isFile(s.InfoPath()) && isFile(s.MemberPath(0))
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
