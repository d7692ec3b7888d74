package memory

import (
	"context"
	"sync"

	"lms-progress-service/internal/app"
)

// Projection mirrors xp/level into an in-memory identity view.
type Projection struct {
	mu      sync.RWMutex
	entries map[string]ProjectedUser
}

// ProjectedUser is the read-optimized slice of a student's identity record.
type ProjectedUser struct {
	XP    int
	Level int
}

var _ app.Projector = (*Projection)(nil)

func NewProjection() *Projection {
	return &Projection{entries: make(map[string]ProjectedUser)}
}

func (p *Projection) SetXPAndLevel(_ context.Context, studentID string, xp, level int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[studentID] = ProjectedUser{XP: xp, Level: level}
	return nil
}

// Get returns the projected view, primarily for tests and read paths.
func (p *Projection) Get(studentID string) (ProjectedUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[studentID]
	return entry, ok
}
