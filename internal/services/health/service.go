package health

import (
	"context"
	"database/sql"
	"time"

	"reflection-backend/internal/shared/storage/db"
	"reflection-backend/internal/shared/telemetry"
)

const (
	StatusOK          = "ok"
	StatusDisabled    = "disabled"
	StatusUnavailable = "unavailable"
)

// Readiness is implemented by the lazily-built upstream client.
type Readiness interface {
	Ready() bool
}

// Service encapsulates health-related checks.
type Service struct {
	Provider    string
	Model       string
	LLM         Readiness
	DB          *sql.DB
	Archive     string
	PingTimeout time.Duration
}

// ProviderStatus describes the upstream text-generation provider.
type ProviderStatus struct {
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
	// Ready is false until the first request builds the client.
	Ready bool `json:"ready"`
}

// Report is the health payload.
type Report struct {
	OK       bool           `json:"ok"`
	Provider ProviderStatus `json:"provider"`
	Database string         `json:"database"`
	Archive  string         `json:"archive"`
}

// Status runs the checks. Only an unreachable configured database makes the
// service unhealthy.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{
		OK:       true,
		Provider: ProviderStatus{Name: s.Provider, Model: s.Model},
		Database: StatusDisabled,
		Archive:  s.Archive,
	}
	if r.Archive == "" {
		r.Archive = "none"
	}
	if s.LLM != nil {
		r.Provider.Ready = s.LLM.Ready()
	}
	if s.DB != nil {
		if err := db.Ping(ctx, s.DB, s.PingTimeout); err != nil {
			telemetry.Warn("health.database_unavailable", map[string]any{"error": err})
			r.Database = StatusUnavailable
			r.OK = false
		} else {
			r.Database = StatusOK
		}
	}
	return r
}
