// Package memory reports system memory pressure using gopsutil.
package memory

import (
	"github.com/shirou/gopsutil/v4/mem"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/zerr"
)

// Probe implements ports.MemoryProbe from the host's virtual memory statistics.
type Probe struct {
	read func() (*mem.VirtualMemoryStat, error)
}

// NewProbe creates a Probe reading the host's memory.
func NewProbe() *Probe {
	return &Probe{read: mem.VirtualMemory}
}

// UsedPercent returns the share of system memory in use, from 0 to 100.
func (p *Probe) UsedPercent() (float64, error) {
	stat, err := p.read()
	if err != nil {
		return 0, zerr.Wrap(err, domain.ErrMemoryProbeFailed.Error())
	}

	used := stat.UsedPercent
	if used == 0 && stat.Total > 0 {
		used = float64(stat.Total-stat.Available) / float64(stat.Total) * 100
	}
	return min(max(used, 0), 100), nil
}
