package workerpool

import (
	"fmt"
	"time"
)

// Statistics aggregates the records collected since Start.
type Statistics struct {
	Workers   int
	Submitted int
	Completed int
	Pending   int
	Succeeded int
	Failed    int

	TotalDuration   time.Duration
	AverageDuration time.Duration

	// WorkerUtilization maps each worker to its summed task time as a percentage
	// of the busiest worker's summed task time.
	WorkerUtilization map[string]float64
}

// Statistics returns the aggregate of the records collected since Start.
func (p *Pool[R]) Statistics() Statistics {
	g := p.gen.Load()
	records := g.snapshot()

	stats := Statistics{
		Workers:           p.workers,
		Submitted:         int(g.submitted.Load()),
		Completed:         int(g.completed.Load()),
		Pending:           int(g.pending.Load()),
		WorkerUtilization: make(map[string]float64, p.workers),
	}

	busy := make(map[string]time.Duration, p.workers)
	for i := range p.workers {
		busy[fmt.Sprintf("worker-%d", i)] = 0
	}

	executed := 0
	for _, rec := range records {
		if rec.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		if rec.WorkerID == "" {
			continue
		}
		d := rec.Duration()
		executed++
		stats.TotalDuration += d
		busy[rec.WorkerID] += d
	}

	if executed > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(executed)
	}

	var busiest time.Duration
	for _, d := range busy {
		busiest = max(busiest, d)
	}
	for name, d := range busy {
		if busiest > 0 {
			stats.WorkerUtilization[name] = float64(d) / float64(busiest) * 100
		} else {
			stats.WorkerUtilization[name] = 0
		}
	}

	return stats
}
