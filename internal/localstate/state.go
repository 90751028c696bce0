// Package localstate persists the CLI's journal selection and template in a
// YAML file under the user's config directory.
package localstate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"gitjournal/api/internal/session"
)

// ErrSessionsUnsupported is returned when something tries to open a
// server-side session against the local file.
var ErrSessionsUnsupported = errors.New("local state does not hold sessions")

type State struct {
	Owner            string    `yaml:"owner,omitempty"`
	Repo             string    `yaml:"repo,omitempty"`
	DiscussionNumber int       `yaml:"discussion_number,omitempty"`
	Template         string    `yaml:"template,omitempty"`
	SettingsGistID   string    `yaml:"settings_gist_id,omitempty"`
	UpdatedAt        time.Time `yaml:"updated_at,omitempty"`
}

// Store reads and writes one state file. It also satisfies the session store
// contract of the journal service so the CLI can reuse it; only the
// preference half does anything.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns <user config dir>/git-journal/state.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "git-journal", "state.yaml"), nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored state; a missing file yields the zero State.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	return st, nil
}

// Update applies fn to the current state and writes the result atomically.
func (s *Store) Update(fn func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return State{}, err
	}
	fn(&st)
	st.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	data, err := yaml.Marshal(st)
	if err != nil {
		return State{}, fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return State{}, fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.yaml")
	if err != nil {
		return State{}, fmt.Errorf("write state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return State{}, fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return State{}, fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return State{}, fmt.Errorf("write state: %w", err)
	}
	return st, nil
}

func (s *Store) LoadPreferences(_ context.Context, _ string) (session.Preferences, error) {
	st, err := s.Load()
	if err != nil {
		return session.Preferences{}, err
	}
	return session.Preferences{
		Owner:            st.Owner,
		Repo:             st.Repo,
		DiscussionNumber: st.DiscussionNumber,
		Template:         st.Template,
	}, nil
}

func (s *Store) SavePreferences(_ context.Context, _ string, prefs session.Preferences) error {
	_, err := s.Update(func(st *State) {
		st.Owner = prefs.Owner
		st.Repo = prefs.Repo
		st.DiscussionNumber = prefs.DiscussionNumber
		st.Template = prefs.Template
	})
	return err
}

func (s *Store) Save(context.Context, string, session.Session, time.Duration) error {
	return ErrSessionsUnsupported
}

func (s *Store) Lookup(context.Context, string) (session.Session, error) {
	return session.Session{}, session.ErrSessionNotFound
}

func (s *Store) Revoke(context.Context, string) error {
	return nil
}

// Ping reports whether the state directory can be reached.
func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
