// Package cache provides the in-process caches fronting hot read
// paths, plus a manager that sweeps expired entries in the background.
package cache

import (
	"log/slog"
	"time"

	"dividi/internal/log"
)

// Cleaner is any cache the manager can sweep.
type Cleaner interface {
	CleanExpired() int
}

// Manager owns the background sweep over its registered caches.
type Manager struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup sweeps all registered caches every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.run(interval)
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				slog.Debug("Swept expired cache entries",
					log.FieldComponent, log.ComponentCache,
					"removed", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends the sweep and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stop)
	<-m.done
}
