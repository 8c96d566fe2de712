package domain

// Payload is the loosely typed data exchanged with the host for one unit.
type Payload = map[string]any

// Unit is one independently processable item in a batch.
type Unit interface {
	// UnitName identifies the unit in results and cache keys.
	UnitName() string
	// Workload is the number of elements the unit carries.
	Workload() int
}

// Task is the per-batch description of one unit of work.
type Task struct {
	UnitIndex int
	UnitName  string
	Payload   Payload
	TaskID    string
	CacheKey  string
}

// UnitResult is the outcome of processing one task.
type UnitResult struct {
	TaskID          string  `json:"task_id"`
	UnitIndex       int     `json:"unit_index"`
	UnitName        string  `json:"unit_name"`
	Success         bool    `json:"success"`
	Cached          bool    `json:"cached,omitempty"`
	ResultPayload   Payload `json:"result,omitempty"`
	ErrorMessage    string  `json:"error,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Strategy is the execution path chosen for a batch.
type Strategy string

const (
	// StrategySequential processes units one after another on the calling goroutine.
	StrategySequential Strategy = "sequential"
	// StrategyParallel dispatches units to a bounded set of workers.
	StrategyParallel Strategy = "parallel"
)

// BatchReport summarizes one ProcessBatch call.
type BatchReport struct {
	Strategy        Strategy `json:"strategy"`
	Workers         int      `json:"workers"`
	Units           int      `json:"units"`
	Succeeded       int      `json:"succeeded"`
	Failed          int      `json:"failed"`
	Cached          int      `json:"cached"`
	FellBack        bool     `json:"fell_back,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
}
