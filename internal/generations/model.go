package generations

import "time"

const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeFailed    = "failed"
)

// Record is one audit-log row for a generation request.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	RequestID string    `json:"requestId"`
	Kind      string    `json:"kind"`
	Outcome   string    `json:"outcome"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Attempts  int       `json:"attempts"`
	LatencyMs int64     `json:"latencyMs"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
