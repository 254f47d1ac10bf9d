package repository

import (
	"context"

	"github.com/user/pricewatch-service/internal/entity"
)

// RunStatusRepository keeps the report of the most recent scheduler pass.
type RunStatusRepository interface {
	SaveLastRun(ctx context.Context, report *entity.RunReport) error
	// LastRun returns ErrNoRunRecorded when nothing has been stored yet.
	LastRun(ctx context.Context) (*entity.RunReport, error)
}
