package usage

import "time"

// Usage is a user's generation allowance for the current UTC day. A zero
// Limit means the allowance is not enforced.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Unlimited reports whether no daily cap applies.
func (u Usage) Unlimited() bool { return u.Limit <= 0 }

// Remaining is how many generations are left today; -1 when unlimited.
func (u Usage) Remaining() int {
	if u.Unlimited() {
		return -1
	}
	if left := u.Limit - u.Used; left > 0 {
		return left
	}
	return 0
}

// Body is the JSON shape served to clients.
func (u Usage) Body() map[string]any {
	return map[string]any{
		"plan":      u.Plan,
		"limit":     u.Limit,
		"used":      u.Used,
		"remaining": u.Remaining(),
		"unlimited": u.Unlimited(),
		"resetsAt":  u.ResetsAt.UTC().Format(time.RFC3339),
	}
}
