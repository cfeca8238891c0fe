package planning

import (
	"context"
	"sync"
)

// LocalizationBuffer is a LocalizationProvider fed by a transport: the producer calls Update and
// the planner reads the latest sample.
type LocalizationBuffer struct {
	mu     sync.Mutex
	latest *LocalizationEstimate
}

var _ LocalizationProvider = (*LocalizationBuffer)(nil)

// Update stores a copy of est as the latest sample.
func (b *LocalizationBuffer) Update(est LocalizationEstimate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = &est
}

// LatestLocalization returns a copy of the latest sample, or nil if none has arrived.
func (b *LocalizationBuffer) LatestLocalization(ctx context.Context) (*LocalizationEstimate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return nil, nil
	}
	cp := *b.latest
	return &cp, nil
}
