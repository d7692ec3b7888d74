package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// Projection mirrors xp/level into a Redis hash per student:
// HSET user:{studentID} xp {xp} level {level}
type Projection struct {
	client *redis.Client
}

var _ app.Projector = (*Projection)(nil)

func NewProjection(client *redis.Client) *Projection {
	return &Projection{client: client}
}

func (p *Projection) SetXPAndLevel(ctx context.Context, studentID string, xp, level int) error {
	if err := p.client.HSet(ctx, p.key(studentID), "xp", xp, "level", level).Err(); err != nil {
		return fmt.Errorf("%w: mirror xp/level: %v", domain.ErrStorage, err)
	}
	return nil
}

func (p *Projection) key(studentID string) string {
	return "user:" + studentID
}
