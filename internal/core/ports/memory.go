package ports

// MemoryProbe reports system memory pressure.
//
//go:generate mockgen -source=memory.go -destination=mocks/mock_memory.go -package=mocks
type MemoryProbe interface {
	// UsedPercent returns the share of system memory in use, from 0 to 100.
	UsedPercent() (float64, error)
}
