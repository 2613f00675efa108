package app

import (
	"time"

	"github.com/bep/debounce"
)

// CleanupScheduler debounces the post-leave room sweep. Every leave calls
// Schedule; bursts within the delay window coalesce into one sweep, and the
// sweep re-reads live room state when it finally fires, so a rejoin inside
// the window cancels the effective closure.
type CleanupScheduler struct {
	registry  *RoomRegistry
	debounced func(func())
}

func NewCleanupScheduler(registry *RoomRegistry, delay time.Duration) *CleanupScheduler {
	return &CleanupScheduler{
		registry:  registry,
		debounced: debounce.New(delay),
	}
}

func (s *CleanupScheduler) Schedule() {
	s.debounced(s.registry.Sweep)
}
