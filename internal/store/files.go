package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// File names used by FileStore.
const (
	AttendanceFile = "attendance.json"
	CardNamesFile  = "card_names.json"
)

// legacyLayout is the naive local timestamp older kiosk releases wrote.
const legacyLayout = "2006-01-02T15:04:05.999999999"

// FileStore keeps the ledger and registry as two JSON documents in a
// directory. Saves are atomic (temp file + rename).
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// OpenFiles returns a FileStore rooted at dir, creating dir if needed.
func OpenFiles(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Close is a no-op; it exists so FileStore and Store share a shape.
func (s *FileStore) Close() error { return nil }

// fileRecord mirrors ledger.Record with string timestamps so that legacy
// files (naive local times, or the older {"timestamp", "signed_in"} shape)
// still load.
type fileRecord struct {
	SignInTime  *string `json:"sign_in_time"`
	SignOutTime *string `json:"sign_out_time"`
	Timestamp   *string `json:"timestamp,omitempty"`
	SignedIn    bool    `json:"signed_in"`
	Hours       float64 `json:"hours"`
}

// LoadAttendance reads attendance.json. A missing file is an empty book.
func (s *FileStore) LoadAttendance(ctx context.Context) (ledger.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw map[string]map[string]fileRecord
	if err := s.readJSON(AttendanceFile, &raw); err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	book := make(ledger.Book, len(raw))
	for day, recs := range raw {
		book[day] = make(ledger.Day, len(recs))
		for uid, fr := range recs {
			rec, err := fr.toRecord()
			if err != nil {
				return nil, fmt.Errorf("load attendance: %s/%s: %w", day, uid, err)
			}
			book[day][uid] = rec
		}
	}
	return book, nil
}

// SaveAttendance writes attendance.json.
func (s *FileStore) SaveAttendance(ctx context.Context, b ledger.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b == nil {
		b = ledger.Book{}
	}
	if err := s.writeJSON(AttendanceFile, b); err != nil {
		return fmt.Errorf("save attendance: %w", err)
	}
	return nil
}

// LoadNames reads card_names.json. A missing file is an empty registry.
func (s *FileStore) LoadNames(ctx context.Context) (registry.Names, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := registry.Names{}
	if err := s.readJSON(CardNamesFile, &names); err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}
	return names, nil
}

// SaveNames writes card_names.json.
func (s *FileStore) SaveNames(ctx context.Context, n registry.Names) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == nil {
		n = registry.Names{}
	}
	if err := s.writeJSON(CardNamesFile, n); err != nil {
		return fmt.Errorf("save names: %w", err)
	}
	return nil
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (fr fileRecord) toRecord() (ledger.Record, error) {
	rec := ledger.Record{SignedIn: fr.SignedIn, Hours: fr.Hours}

	in := fr.SignInTime
	if in == nil {
		in = fr.Timestamp
	}
	var err error
	if rec.SignInTime, err = parseFileTime(in); err != nil {
		return ledger.Record{}, fmt.Errorf("sign_in_time: %w", err)
	}
	if rec.SignOutTime, err = parseFileTime(fr.SignOutTime); err != nil {
		return ledger.Record{}, fmt.Errorf("sign_out_time: %w", err)
	}
	return rec, nil
}

func parseFileTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, *s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(legacyLayout, *s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
