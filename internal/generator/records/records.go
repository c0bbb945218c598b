// Package records keeps Outlook style items (tasks, rules, notes, templates,
// signatures, out-of-office settings) as JSON collections keyed by UUID.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sirupsen/logrus"
)

const formatVersion = 1

// Collection kinds, recorded in each file so one kind is never read as another
const (
	KindTasks       = "tasks"
	KindRules       = "mail-rules"
	KindNotes       = "notes"
	KindTemplates   = "email-templates"
	KindSignatures  = "email-signatures"
	KindOutOfOffice = "out-of-office"
)

// File is the on-disk form of a collection
type File[T any] struct {
	Kind    string    `json:"kind"`
	Version int       `json:"version"`
	Updated time.Time `json:"updated"`
	Items   []T       `json:"items"`
}

// Item is implemented by every record type
type Item interface {
	Key() string
}

// Decode reads a collection. Empty input yields an empty collection.
func Decode[T any](kind string, data []byte) (*File[T], error) {
	f := &File[T]{Kind: kind, Version: formatVersion}
	if len(strings.TrimSpace(string(data))) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("not a %s file: %w", kind, err)
	}
	if f.Kind != kind {
		return nil, fmt.Errorf("file holds %q records, not %s", f.Kind, kind)
	}
	if f.Version > formatVersion {
		return nil, fmt.Errorf("%s file version %d is newer than supported version %d", kind, f.Version, formatVersion)
	}
	return f, nil
}

// Encode renders the collection as indented JSON
func (f *File[T]) Encode() ([]byte, error) {
	f.Version = formatVersion
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", f.Kind, err)
	}
	return append(data, '\n'), nil
}

// Lookup finds the item whose key equals ref or uniquely starts with it
func Lookup[T Item](items []T, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("an id is required")
	}
	found := -1
	for i, item := range items {
		key := item.Key()
		if key == ref {
			return i, nil
		}
		if strings.HasPrefix(key, ref) {
			if found >= 0 {
				return -1, fmt.Errorf("id prefix %q matches more than one record", ref)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("no record with id %q", ref)
	}
	return found, nil
}

// Store reads and writes collections through the output store, so every
// change is a locked read-modify-write of the collection file
type Store struct {
	files  *output.Store
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

// NewStore creates a record store on top of files
func NewStore(files *output.Store, logger *logrus.Logger) *Store {
	return &Store{files: files, logger: logger, now: time.Now, newID: uuid.NewString}
}

// Modify loads the collection named by filename, applies fn and writes it to
// the resolved target. It returns the path written.
func Modify[T any](ctx context.Context, s *Store, kind, filename, outputPath string, fn func(*File[T]) error) (string, error) {
	path, existed, err := s.files.Edit(ctx, filename, outputPath, func(existing []byte) ([]byte, error) {
		f, err := Decode[T](kind, existing)
		if err != nil {
			return nil, err
		}
		if err := fn(f); err != nil {
			return nil, err
		}
		f.Updated = s.now().UTC()
		return f.Encode()
	})
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"kind": kind, "path": path, "created": !existed}).Debug("Updated record collection")
	return path, nil
}

// Load reads a collection. A missing file is an empty collection.
func Load[T any](s *Store, kind, filename string) (*File[T], string, error) {
	path, err := s.files.ResolveInput(filename)
	if err != nil {
		return nil, "", err
	}
	data, err := s.files.Read(path)
	if err != nil {
		return nil, "", err
	}
	f, err := Decode[T](kind, data)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
