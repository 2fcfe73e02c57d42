package usage

import "time"

// Plan is the allowance granted to every user.
type Plan struct {
	Name  string
	Limit int
}

// DefaultPlan allows 20 generations per UTC day.
func DefaultPlan() Plan {
	return Plan{Name: "Daily", Limit: 20}
}

func (p Plan) fresh(now time.Time) Usage {
	return Usage{Plan: p.Name, Limit: p.Limit, Used: 0, ResetsAt: nextReset(now)}
}

// nextReset is the UTC midnight following now.
func nextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func expired(u Usage, now time.Time) bool {
	return !now.Before(u.ResetsAt)
}
