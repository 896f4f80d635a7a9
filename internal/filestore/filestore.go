// Package filestore is an address book backend over a directory of vCard
// files. It serves the offline workflow: export the
// address book, run merges against the files, inspect the diff, and upload
// separately.
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AkaBlas/akadressen-utils/internal/vcard"
	"github.com/AkaBlas/akadressen-utils/pkg/contacts"
	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// Store reads and writes contacts as .vcf files under a directory.
type Store struct {
	dir string

	mu     sync.Mutex
	paths  map[string]string // UID -> file path
	revs   map[string]string // UID -> content hash at fetch time
	shared map[string]int    // file path -> number of cards it holds
}

// New creates a Store over dir. The directory must exist.
func New(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapIO("stat", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", errors.ErrInvalidInput, dir)
	}
	return &Store{
		dir:    dir,
		paths:  make(map[string]string),
		revs:   make(map[string]string),
		shared: make(map[string]int),
	}, nil
}

// FetchAll reads every .vcf file of the directory. A file may hold several
// concatenated cards, as whole-book exports do. The revision marker is a
// hash of the file content, so a file edited between fetch and upload is
// detected just like a concurrent server edit would be.
func (s *Store) FetchAll(_ context.Context) ([]contacts.ContactRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.WrapIO("read", s.dir, err)
	}

	var records []contacts.ContactRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".vcf") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapIO("read", path, err)
		}
		recs, err := vcard.DecodeAll(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		rev := contentRev(raw)
		for i := range recs {
			rec := &recs[i]
			if rec.UID == "" {
				if len(recs) > 1 {
					return nil, errors.WrapParse("vcard", path, fmt.Errorf("card %d has no UID", i+1))
				}
				rec.UID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			}
			rec.Rev = rev

			s.mu.Lock()
			s.paths[rec.UID] = path
			s.revs[rec.UID] = rev
			s.shared[path] = len(recs)
			s.mu.Unlock()

			records = append(records, *rec)
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].UID < records[j].UID })
	return records, nil
}

// Upload writes one contact back to its file, or a new file for created
// contacts. Updates check the revision against the state seen at fetch time.
func (s *Store) Upload(_ context.Context, rec contacts.ContactRecord, create bool) error {
	s.mu.Lock()
	path, known := s.paths[rec.UID]
	fetched := s.revs[rec.UID]
	cards := s.shared[path]
	s.mu.Unlock()

	if !create {
		if rec.Rev == "" {
			return fmt.Errorf("contact %s: %w", rec.UID, errors.ErrMissingRevision)
		}
		if !known {
			return &errors.UploadError{UID: rec.UID, Message: "contact not in directory"}
		}
		if rec.Rev != fetched {
			return &errors.UploadError{UID: rec.UID, Message: "file changed since fetch"}
		}
		// Rewriting one card of a combined export would drop its siblings.
		if cards > 1 {
			return &errors.UploadError{UID: rec.UID, Message: "file holds multiple contacts, split it first"}
		}
	}
	if path == "" {
		path = filepath.Join(s.dir, filename(rec))
	}

	payload, err := vcard.EncodeBytes(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return &errors.UploadError{UID: rec.UID, Err: err}
	}

	s.mu.Lock()
	s.paths[rec.UID] = path
	s.revs[rec.UID] = contentRev(payload)
	s.shared[path] = 1
	s.mu.Unlock()
	return nil
}

func contentRev(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func filename(rec contacts.ContactRecord) string {
	name := rec.Name.Family + rec.Name.Given
	if name == "" {
		name = rec.UID
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return -1
		default:
			return r
		}
	}, name)
	return name + ".vcf"
}
