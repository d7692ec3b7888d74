package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/domain"
)

// Projection mirrors xp/level into the users table so identity reads avoid
// touching the ledger.
type Projection struct {
	pool *pgxpool.Pool
}

var _ app.Projector = (*Projection)(nil)

func NewProjection(pool *pgxpool.Pool) *Projection {
	return &Projection{pool: pool}
}

func (p *Projection) SetXPAndLevel(ctx context.Context, studentID string, xp, level int) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, xp, level) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET xp=EXCLUDED.xp, level=EXCLUDED.level`,
		studentID, xp, level)
	if err != nil {
		return fmt.Errorf("%w: mirror xp/level: %v", domain.ErrStorage, err)
	}
	return nil
}
