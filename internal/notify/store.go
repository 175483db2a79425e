// Package notify implements the in-app notification store and the
// producers that feed it.
//
// The store deduplicates on caller-supplied event keys: once a key has
// been seen, adding it again is a silent no-op, even after the original
// notification was deleted. Only ClearAll forgets keys.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"dividi/internal/core"
	"dividi/internal/log"
)

// Input is a notification before the store assigns identity and state.
type Input struct {
	Type      core.NotificationType
	Title     string
	Message   string
	RelatedID string
	Route     string
	EventKey  string
}

// Store is the single mutator of notification state. Implementations
// must keep notifications newest-first and event keys permanent until
// ClearAll.
type Store interface {
	// Add inserts a notification unless its event key was already used.
	// Returns the stored record and true, or a zero value and false when
	// the add was deduplicated.
	Add(input Input) (core.Notification, bool)

	// MarkRead flags one notification as read; unknown ids are ignored.
	MarkRead(id string)

	// MarkAllRead flags every notification as read.
	MarkAllRead()

	// Delete removes one notification but keeps its event key used.
	Delete(id string)

	// ClearAll removes every notification and releases all event keys.
	ClearAll()

	// List returns the notifications newest-first.
	List() []core.Notification

	// UnreadCount counts notifications not yet marked read.
	UnreadCount() int

	// Hydrated reports whether persisted state has been loaded. It flips
	// true at most once; consumers should hold a loading state until then.
	Hydrated() bool
}

// persistedState is the single blob written to disk as one unit.
type persistedState struct {
	Notifications []core.Notification `json:"notifications"`
	EventKeys     map[string]bool     `json:"event_keys"`
}

// FileStore is a Store persisted to a single JSON file. Every mutation
// rewrites the blob atomically (temp file + rename).
type FileStore struct {
	mu            sync.Mutex
	path          string
	notifications []core.Notification
	eventKeys     map[string]bool
	hydrated      bool

	now func() time.Time
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads any existing blob at path. A missing file hydrates
// empty; a corrupt file is logged and hydrates empty rather than
// blocking the store forever; an unreadable path leaves the store
// unhydrated so consumers can keep showing a loading state.
func NewFileStore(path string) *FileStore {
	s := &FileStore{
		path:      path,
		eventKeys: make(map[string]bool),
		now:       time.Now,
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var state persistedState
		if jsonErr := json.Unmarshal(data, &state); jsonErr != nil {
			slog.Warn("Notification state corrupt, starting empty",
				"path", s.path,
				log.FieldError, jsonErr,
				log.FieldComponent, log.ComponentNotify)
		} else {
			s.notifications = state.Notifications
			if state.EventKeys != nil {
				s.eventKeys = state.EventKeys
			}
		}
		s.hydrated = true
	case errors.Is(err, fs.ErrNotExist):
		s.hydrated = true
	default:
		slog.Warn("Notification state unreadable, store not hydrated",
			"path", s.path,
			log.FieldError, err,
			log.FieldComponent, log.ComponentNotify)
	}
}

// persist writes the whole state as one unit. Callers hold the lock.
func (s *FileStore) persist() {
	state := persistedState{
		Notifications: s.notifications,
		EventKeys:     s.eventKeys,
	}
	if state.Notifications == nil {
		state.Notifications = []core.Notification{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		slog.Error("Marshal notification state", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		slog.Error("Create notification state directory", "error", err)
		return
	}
	tmp := fmt.Sprintf("%s.tmp.%d", s.path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("Write notification state", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("Replace notification state", "path", s.path, "error", err)
	}
}

func (s *FileStore) Add(input Input) (core.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.EventKey != "" && s.eventKeys[input.EventKey] {
		slog.Debug("Notification deduplicated",
			log.FieldEventKey, input.EventKey,
			log.FieldComponent, log.ComponentNotify)
		return core.Notification{}, false
	}

	n := core.Notification{
		ID:        uuid.New().String(),
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: s.now(),
		IsRead:    false,
		RelatedID: input.RelatedID,
		Route:     input.Route,
		EventKey:  input.EventKey,
	}

	// Newest first.
	s.notifications = append([]core.Notification{n}, s.notifications...)
	if input.EventKey != "" {
		s.eventKeys[input.EventKey] = true
	}
	s.persist()
	return n, true
}

func (s *FileStore) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			if !s.notifications[i].IsRead {
				s.notifications[i].IsRead = true
				s.persist()
			}
			return
		}
	}
}

func (s *FileStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			changed = true
		}
	}
	if changed {
		s.persist()
	}
}

func (s *FileStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			// Event key stays used: deleting must not allow a re-notify.
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			s.persist()
			return
		}
	}
}

func (s *FileStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	s.eventKeys = make(map[string]bool)
	s.persist()
}

func (s *FileStore) List() []core.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *FileStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *FileStore) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}
