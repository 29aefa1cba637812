package model

// TargetStatus is the lifecycle state of one crawl target.
type TargetStatus string

const (
	TargetPending   TargetStatus = "pending"
	TargetAttempted TargetStatus = "attempted"
	TargetSuccess   TargetStatus = "success"
	TargetExhausted TargetStatus = "exhausted"
)

// TargetState tracks one target through the orchestrator's state machine.
// Mutated only by the orchestrator.
type TargetState struct {
	Volume      int          `json:"volume"`
	Status      TargetStatus `json:"status"`
	Retries     int          `json:"retries"`
	LastOutcome string       `json:"last_outcome,omitempty"`
	Records     int          `json:"records,omitempty"`
}

// Stats aggregates per-outcome counters across a run.
type Stats struct {
	Succeeded         int            `json:"succeeded"`
	Skipped           int            `json:"skipped"` // artifact already existed
	Captcha           int            `json:"captcha"`
	ExhaustedByReason map[string]int `json:"exhausted_by_reason"`
}

// NewStats returns an empty Stats with the reason map allocated.
func NewStats() *Stats {
	return &Stats{ExhaustedByReason: map[string]int{}}
}

// Exhausted returns the total number of exhausted targets.
func (s *Stats) Exhausted() int {
	n := 0
	for _, c := range s.ExhaustedByReason {
		n += c
	}
	return n
}
