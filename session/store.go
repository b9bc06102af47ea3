package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/m4xw311/ask/errors"
)

// Store persists sessions as one JSON file per identifier, named
// <prefix><id>.json under a single directory. The prefix lets ClearAll find
// every transcript without touching unrelated files.
type Store struct {
	dir    string
	prefix string
}

// NewStore creates a store rooted at dir. An empty dir falls back to the
// OS temp directory, matching the transcript-per-terminal behavior where
// conversations evaporate on reboot.
func NewStore(dir, prefix string) *Store {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Store{dir: dir, prefix: prefix}
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, st.prefix+id+".json")
}

// Load reads the session for id, returning an empty session if none is
// persisted. Sessions that fail the linkage invariant are rejected.
func (st *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(st.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return New(id, ""), nil
		}
		return nil, errors.Mark(errors.KindStore, errors.Wrapf(err, "could not read session file %s", st.path(id)))
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Mark(errors.KindStore, errors.Wrapf(err, "could not parse session file %s", st.path(id)))
	}
	s.ID = id
	if err := s.Validate(); err != nil {
		return nil, errors.Mark(errors.KindStore, errors.Wrapf(err, "session '%s' is corrupt", id))
	}
	return &s, nil
}

// Save writes the session to disk atomically (temp file + rename) so a
// crash mid-write never leaves a half-written transcript. A clean session
// is a no-op.
func (st *Store) Save(s *Session) error {
	if !s.Dirty() {
		return nil
	}
	if err := s.Validate(); err != nil {
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "refusing to persist session '%s'", s.ID))
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "failed to serialize session '%s'", s.ID))
	}

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "could not create session directory"))
	}

	tmp := st.path(s.ID) + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "failed to write session file"))
	}
	if err := os.Rename(tmp, st.path(s.ID)); err != nil {
		os.Remove(tmp)
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "failed to replace session file"))
	}
	s.markClean()
	return nil
}

// Clear removes the persisted history for id. The identity survives: a
// subsequent Load returns an empty session with the same id.
func (st *Store) Clear(id string) error {
	err := os.Remove(st.path(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Mark(errors.KindStore, errors.Wrapf(err, "error clearing session '%s'", id))
	}
	return nil
}

// ClearAll deletes every persisted session and reports how many were
// removed.
func (st *Store) ClearAll() (int, error) {
	ids, err := st.List()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if err := st.Clear(id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// List returns the identifiers of all persisted sessions, sorted.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Mark(errors.KindStore, errors.Wrapf(err, "could not read session directory %s", st.dir))
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, st.prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, st.prefix), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Summary is a one-line description of a persisted session, for listings.
type Summary struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Preview string `json:"preview"`
}

// Summaries loads every persisted session and extracts the first line of
// its first user message as a preview.
func (st *Store) Summaries() ([]Summary, error) {
	ids, err := st.List()
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			// A corrupt transcript should not hide the others.
			out = append(out, Summary{ID: id, Preview: "[unreadable transcript]"})
			continue
		}
		out = append(out, Summary{ID: id, Model: s.Model, Preview: firstUserLine(s)})
	}
	return out, nil
}

func firstUserLine(s *Session) string {
	for _, msg := range s.Messages {
		if msg.Role != RoleUser {
			continue
		}
		line := msg.Content
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if len(line) > 64 {
			line = line[:64]
		}
		return line
	}
	return "[empty]"
}
