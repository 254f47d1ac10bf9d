package memory

import (
	"context"
	"sync"

	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
)

// RunStatusRepoImpl keeps the last run report in process memory. It is
// used when Redis is not configured.
type RunStatusRepoImpl struct {
	mu   sync.RWMutex
	last *entity.RunReport
}

// NewRunStatusRepo creates a new instance of RunStatusRepoImpl.
func NewRunStatusRepo() *RunStatusRepoImpl {
	return &RunStatusRepoImpl{}
}

func (r *RunStatusRepoImpl) SaveLastRun(_ context.Context, report *entity.RunReport) error {
	cp := *report
	r.mu.Lock()
	r.last = &cp
	r.mu.Unlock()
	return nil
}

func (r *RunStatusRepoImpl) LastRun(_ context.Context) (*entity.RunReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil, repository.ErrNoRunRecorded
	}
	cp := *r.last
	return &cp, nil
}
