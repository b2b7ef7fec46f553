package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Sweeper: service.InvitationService.
type Sweeper interface {
	Sweep(ctx context.Context, retention time.Duration) (int64, error)
}

// SweepHandler удаляет давно истёкшие приглашения.
type SweepHandler struct {
	sweeper          Sweeper
	defaultRetention time.Duration
}

func NewSweepHandler(s Sweeper, defaultRetention time.Duration) *SweepHandler {
	return &SweepHandler{sweeper: s, defaultRetention: defaultRetention}
}

// ProcessTask реализует asynq.Handler.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			// битый payload ретраить бесполезно
			return fmt.Errorf("decode sweep payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if p.Retention <= 0 {
		p.Retention = h.defaultRetention
	}

	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}

	n, err := h.sweeper.Sweep(ctx, p.Retention)
	if err != nil {
		return fmt.Errorf("sweep invitations: %w", err)
	}
	slog.Info("invitation sweep done", "task_id", taskID, "deleted", n, "retention", p.Retention.String())
	return nil
}
