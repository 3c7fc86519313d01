package pdfset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcscales/internal/lhagrid"
	"mcscales/internal/replica"
)

var (
	// ErrNoIndexes is returned when a build request selects no replicas.
	ErrNoIndexes = errors.New("no replica indexes selected")

	// ErrIndexOutOfRange is returned when a selected index is not a replica
	// of the source set. Member 0 is never a valid selection.
	ErrIndexOutOfRange = errors.New("replica index out of range")
)

// Builder writes new sets. The zero value writes into the current directory
// with one worker per CPU and no logging.
type Builder struct {
	// Folder is the parent directory of new sets. It must exist.
	Folder string
	// Workers bounds concurrent replica copies and reads.
	Workers int
	Logger  *zap.Logger
	// Codec receives member read and write events.
	Codec *zap.Logger
}

// Request describes a set to derive from a source set.
type Request struct {
	// Indexes are source replica ids. Position k-1 becomes new replica k.
	Indexes []int
	Name    string
	// Description replaces SetDesc when set. An empty string is written as
	// an empty SetDesc.
	Description *string
	// ExtraFields are merged into the info document before SetDesc.
	ExtraFields map[string]any
}

// Copy records that source replica From became replica To of the new set.
type Copy struct {
	From int
	To   int
}

// Result is a successfully built set.
type Result struct {
	Set    *Set
	Copies []Copy
}

func (b *Builder) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *Builder) codec() *zap.Logger {
	if b.Codec == nil {
		return zap.NewNop()
	}
	return b.Codec
}

func (b *Builder) workers() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

func (b *Builder) folder() string {
	if b.Folder == "" {
		return "."
	}
	return b.Folder
}

// Destination returns the directory a set called name would be written to.
func (b *Builder) Destination(name string) string {
	return filepath.Join(b.folder(), name)
}

// DestinationFree returns a ValidationError if a set called name cannot be
// built because its destination already exists.
func (b *Builder) DestinationFree(name string) error {
	return destinationFree(b.Destination(name))
}

// Build creates a new set from the replicas of src selected by req. Phases
// run strictly in order: the destination is created, the info document is
// written, every selected replica is copied, and only then is member 0
// averaged from the copies. A failure after the destination is created
// leaves the partial set in place.
func (b *Builder) Build(ctx context.Context, src *Set, req Request) (*Result, error) {
	log := b.logger()

	if err := checkName(req.Name); err != nil {
		return nil, err
	}
	if len(req.Indexes) == 0 {
		return nil, ErrNoIndexes
	}
	srcInfo, err := src.Info()
	if err != nil {
		return nil, err
	}
	n, err := srcInfo.NumMembers()
	if err != nil {
		return nil, err
	}
	for _, idx := range req.Indexes {
		if idx < 1 || idx >= n {
			return nil, fmt.Errorf("%w: %d (set %s has replicas 1..%d)", ErrIndexOutOfRange, idx, src.Name(), n-1)
		}
	}

	root := b.Destination(req.Name)
	if err := destinationFree(root); err != nil {
		return nil, err
	}
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, err
	}

	newLen := len(req.Indexes) + 1
	log.Info("writing new grid set", zap.String("path", root), zap.Int("members", newLen))

	info := srcInfo.Clone()
	if err := info.Set(keyNumMembers, newLen); err != nil {
		return nil, err
	}
	extra := make([]string, 0, len(req.ExtraFields))
	for k := range req.ExtraFields {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := info.Set(k, req.ExtraFields[k]); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := info.Set(keySetDesc, *req.Description); err != nil {
			return nil, err
		}
	}
	if err := info.WriteFile(filepath.Join(root, req.Name+".info")); err != nil {
		return nil, err
	}

	copies := make([]Copy, len(req.Indexes))
	for k, idx := range req.Indexes {
		copies[k] = Copy{From: idx, To: k + 1}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for _, c := range copies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log.Debug("copying replica",
				zap.String("source", src.Name()), zap.Int("from", c.From), zap.Int("to", c.To))
			return copyFile(src.MemberPath(c.From), memberPath(root, req.Name, c.To))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("copy replicas: %w", err)
	}

	out := &Set{path: filepath.Clean(root), info: info}
	if err := b.GenerateCentral(ctx, out); err != nil {
		return nil, err
	}
	return &Result{Set: out, Copies: copies}, nil
}

// GenerateCentral recomputes member 0 of s as the average of members
// 1..NumMembers-1 and writes it, replacing any existing member 0.
func (b *Builder) GenerateCentral(ctx context.Context, s *Set) error {
	log, codec := b.logger(), b.codec()
	log.Info("generating central replica", zap.String("set", s.Name()))

	n, err := s.Len()
	if err != nil {
		return err
	}
	members := make([]*lhagrid.Member, n-1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for id := 1; id < n; id++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.Member(id)
			if err != nil {
				return err
			}
			codec.Debug("parsed member", zap.String("path", s.MemberPath(id)), zap.Int("subgrids", len(m.Subgrids)))
			members[id-1] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load replicas of %s: %w", s.Name(), err)
	}

	central, err := replica.Average(members)
	if err != nil {
		return fmt.Errorf("average replicas of %s: %w", s.Name(), err)
	}

	target := s.MemberPath(0)
	if isFile(target) {
		log.Warn("overwriting replica file", zap.String("path", target))
	}
	if err := lhagrid.WriteFile(target, central); err != nil {
		return err
	}
	codec.Debug("wrote member", zap.String("path", target), zap.Int("subgrids", len(central.Subgrids)))
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid set name %q", name)
	}
	return nil
}

func copyFile(from, to string) (err error) {
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
