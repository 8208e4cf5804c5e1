// Package hoststat samples host CPU load for status snapshots.
package hoststat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
)

// Snapshot is one host reading. Load1 is zero where the platform has no
// load average.
type Snapshot struct {
	CPUPercent float64
	Cores      int
	Load1      float64
	At         time.Time
}

func (s Snapshot) String() string {
	return fmt.Sprintf("cpu %.0f%% of %d cores, load %.2f", s.CPUPercent, s.Cores, s.Load1)
}

// Sampler reads host CPU usage. Readings taken closer together than
// MinInterval return the previous snapshot.
type Sampler struct {
	MinInterval time.Duration

	mu   sync.Mutex
	last Snapshot
}

// NewSampler returns a Sampler that rate-limits itself to minInterval.
func NewSampler(minInterval time.Duration) *Sampler {
	return &Sampler{MinInterval: minInterval}
}

// Sample returns the CPU utilisation since the previous call.
func (s *Sampler) Sample(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !s.last.At.IsZero() && now.Sub(s.last.At) < s.MinInterval {
		return s.last, nil
	}

	// Zero interval compares against the previous call's counters.
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cpu percent: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cpu count: %w", err)
	}
	snap := Snapshot{Cores: cores, At: now}
	if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.Load1 = avg.Load1
	}
	s.last = snap
	return snap, nil
}
