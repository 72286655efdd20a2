// Package expectfile implements the test-expectation baseline: a persisted
// set of test identifiers known to fail. The on-disk form is a plain text
// file, one identifier per line under a versioned header, so baselines diff
// cleanly in version control and can be hand-edited (delete a line to
// un-expect a fixed test).
package expectfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xfail-dev/xfail/types"
)

const (
	// magicPrefix starts the header line of every baseline file.
	magicPrefix = "xfail file v"

	// FormatVersion is the version written by Serialize. Parse rejects
	// versions it does not know rather than guessing at their layout.
	FormatVersion = 1
)

// Store is an in-memory set of test identifiers believed to currently fail.
// Membership is byte-exact; ordering carries no meaning and is only fixed
// (sorted) in the serialized form for deterministic diffs.
type Store struct {
	ids map[string]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// FromIdentifiers builds a store containing exactly the given identifiers.
func FromIdentifiers(ids ...string) *Store {
	s := New()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// FromOutcomes rebuilds a store from a complete session's outcome sequence.
// An identifier is kept when it is still failing (fail, error, or an
// expected failure that failed again) and dropped when it passed, whether
// expected to or not. Skipped tests contribute nothing either way. The
// result depends only on the set of outcomes, not their order: the runner
// reports one outcome per identifier, and should malformed input carry
// both a pass-kind and a fail-kind outcome for the same identifier, the
// pass wins and the identifier is dropped.
func FromOutcomes(outcomes []types.Outcome) *Store {
	passed := make(map[string]struct{})
	for _, o := range outcomes {
		switch o.Status {
		case types.TestStatusPass, types.TestStatusXPass:
			passed[o.ID] = struct{}{}
		}
	}

	s := New()
	for _, o := range outcomes {
		switch o.Status {
		case types.TestStatusFail, types.TestStatusError, types.TestStatusXFail:
			if _, ok := passed[o.ID]; !ok {
				s.ids[o.ID] = struct{}{}
			}
		}
	}
	return s
}

// Contains reports whether the identifier is expected to fail.
func (s *Store) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers in the store.
func (s *Store) Len() int {
	return len(s.ids)
}

// Identifiers returns the stored identifiers in sorted order.
func (s *Store) Identifiers() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two stores hold the same identifier set.
func (s *Store) Equal(other *Store) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}

// Load reads a baseline from path. A missing file is a legitimate state
// (no known failures yet) and yields an empty store. Content that cannot
// be parsed yields a *CorruptFormatError carrying the path; the caller
// must treat that as fatal rather than proceed with an empty baseline.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("opening baseline file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		var corrupt *CorruptFormatError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
			return nil, corrupt
		}
		return nil, fmt.Errorf("reading baseline file %s: %w", path, err)
	}
	return s, nil
}

// Parse reads the persisted form from r. Lines after the header are
// identifiers; blank lines and lines starting with '#' are tolerated so a
// maintainer can annotate the file by hand. Comments are not preserved
// across an update rewrite.
func Parse(r io.Reader) (*Store, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &CorruptFormatError{Line: 1, Reason: "missing header line"}
	}
	header := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(header, magicPrefix) {
		return nil, &CorruptFormatError{Line: 1, Reason: "not an xfail baseline file"}
	}
	version, err := strconv.Atoi(strings.TrimPrefix(header, magicPrefix))
	if err != nil {
		return nil, &CorruptFormatError{Line: 1, Reason: "malformed header version"}
	}
	if version != FormatVersion {
		return nil, &CorruptFormatError{Line: 1, Reason: fmt.Sprintf("unknown baseline file version %d", version)}
	}

	s := New()
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.ids[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Serialize writes the persisted form to w: header line, then identifiers
// in sorted order, one per line.
func (s *Store) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s%d\n", magicPrefix, FormatVersion); err != nil {
		return err
	}
	for _, id := range s.Identifiers() {
		if _, err := fmt.Fprintln(bw, id); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save atomically replaces path with the serialized store: the content is
// written to a temp file in the same directory and renamed into place, so a
// crash mid-write never leaves a truncated baseline and a concurrent reader
// observes either the old file or the new one. This is a full overwrite;
// the previous content is superseded even when the store is empty.
func (s *Store) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".xfail-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp baseline file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-ops once the rename has succeeded.
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := s.Serialize(tmp); err != nil {
		return fmt.Errorf("writing baseline file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing baseline file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing baseline file: %w", err)
	}
	// The baseline is meant to be committed; temp files default to 0600.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting baseline file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing baseline file %s: %w", path, err)
	}
	return nil
}
