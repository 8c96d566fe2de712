package memory

import "github.com/shirou/gopsutil/v4/mem"

func NewProbeWith(read func() (*mem.VirtualMemoryStat, error)) *Probe {
	return &Probe{read: read}
}
