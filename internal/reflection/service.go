package reflection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"reflection-backend/internal/generations"
	"reflection-backend/internal/shared/metrics"
	"reflection-backend/internal/shared/storage/object"
	"reflection-backend/internal/shared/telemetry"
	"reflection-backend/internal/shared/util"
	"reflection-backend/internal/usage"
)

// Quota is the allowance a generation is charged against. A unit is taken
// before dispatch and handed back when the generation fails.
type Quota interface {
	Consume(ctx context.Context, userID string, n int) (usage.Usage, error)
	Refund(ctx context.Context, userID string, n int) (usage.Usage, error)
}

// Service wraps the Router with quota enforcement, metrics, the generation
// log and archiving of rejected upstream output. Usage, Log and Archive are
// optional.
type Service struct {
	Router   *Router
	Usage    Quota
	Log      generations.Repo
	Archive  object.ObjectStore
	Provider string
	Model    string
	Now      func() time.Time
}

// Generate serves one request for userID. Errors are always *Error.
func (s *Service) Generate(ctx context.Context, userID, requestID, kindTag string, data json.RawMessage) (*Result, error) {
	p, err := s.Router.Prepare(kindTag, data)
	if err != nil {
		return nil, err
	}

	if s.Usage != nil {
		if _, err := s.Usage.Consume(ctx, userID, 1); err != nil {
			if errors.Is(err, usage.ErrLimitReached) {
				return nil, &Error{
					Code:    CodeLimitReached,
					Status:  http.StatusTooManyRequests,
					Message: "Daily generation limit reached",
					Err:     err,
				}
			}
			return nil, MapError(fmt.Errorf("usage check: %w", err))
		}
	}

	metrics.IncGenerationStarted()
	start := s.now()
	res, err := s.Router.Dispatch(ctx, p)
	latency := s.now().Sub(start)
	metrics.ObserveGenerationDurationMs(float64(latency.Microseconds()) / 1000.0)
	if res.Attempts > 1 {
		metrics.AddRetries(res.Attempts - 1)
	}

	rec := generations.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		RequestID: requestID,
		Kind:      p.Kind().String(),
		Attempts:  res.Attempts,
		LatencyMs: latency.Milliseconds(),
		Provider:  s.Provider,
		Model:     s.Model,
		CreatedAt: start.UTC(),
	}
	switch {
	case err != nil:
		metrics.IncGenerationFailed()
		rec.Outcome = generations.OutcomeFailed
		rec.ErrorCode = MapError(err).Code
	case res.Fallback:
		metrics.IncGenerationFallback()
		rec.Outcome = generations.OutcomeFallback
	default:
		metrics.IncGenerationSucceeded()
		rec.Outcome = generations.OutcomeGenerated
	}

	if res.Rejected != "" {
		s.archiveRejected(ctx, rec, res.Rejected)
	}
	s.record(ctx, rec)

	if err != nil {
		s.refund(userID, requestID)
		return res, err
	}
	return res, nil
}

// refund runs detached from the request context so a cancelled request still
// gets its unit back.
func (s *Service) refund(userID, requestID string) {
	if s.Usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.Usage.Refund(ctx, userID, 1); err != nil {
		telemetry.Warn("usage.refund_failed", map[string]any{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err,
		})
	}
}

func (s *Service) record(ctx context.Context, rec generations.Record) {
	if s.Log == nil {
		return
	}
	if err := s.Log.Create(ctx, rec); err != nil {
		telemetry.Warn("generation.record_failed", map[string]any{
			"request_id": rec.RequestID,
			"kind":       rec.Kind,
			"error":      err,
		})
	}
}

type rejectedOutput struct {
	GenerationID string    `json:"generationId"`
	RequestID    string    `json:"requestId,omitempty"`
	Kind         string    `json:"kind"`
	UserKey      string    `json:"userKey"`
	Attempts     int       `json:"attempts"`
	RejectedAt   time.Time `json:"rejectedAt"`
	Output       string    `json:"output"`
}

// archiveRejected stores upstream output that failed validation. Failures are
// logged only.
func (s *Service) archiveRejected(ctx context.Context, rec generations.Record, output string) {
	if s.Archive == nil {
		return
	}
	key, err := rejectedKey(rec)
	if err == nil {
		var body []byte
		body, err = json.Marshal(rejectedOutput{
			GenerationID: rec.ID,
			RequestID:    rec.RequestID,
			Kind:         rec.Kind,
			UserKey:      util.HashUserKey(rec.UserID),
			Attempts:     rec.Attempts,
			RejectedAt:   rec.CreatedAt,
			Output:       output,
		})
		if err == nil {
			_, err = s.Archive.Put(ctx, key, "application/json", bytes.NewReader(body))
		}
	}
	if err != nil {
		telemetry.Warn("generation.archive_failed", map[string]any{
			"request_id": rec.RequestID,
			"kind":       rec.Kind,
			"error":      err,
		})
		return
	}
	telemetry.Info("generation.archived", map[string]any{
		"request_id": rec.RequestID,
		"kind":       rec.Kind,
		"key":        key,
	})
}

// rejectedKey is rejected/<kind>/<yyyy-mm-dd>/<requestID>.json, using the
// generation ID when the request carries no usable ID.
func rejectedKey(rec generations.Record) (string, error) {
	name := rec.ID
	if rec.RequestID != "" {
		if clean, err := util.SanitizeKeySegment(rec.RequestID); err == nil {
			name = clean
		}
	}
	if name == "" {
		return "", errors.New("archive key needs a request or generation id")
	}
	return object.CleanKey(fmt.Sprintf("rejected/%s/%s/%s.json", rec.Kind, rec.CreatedAt.UTC().Format("2006-01-02"), name))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
