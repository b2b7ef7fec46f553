package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeInvitationSweep = "invitation:sweep"

type SweepPayload struct {
	Retention time.Duration `json:"retention"`
}

func NewSweepTask(retention time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(SweepPayload{Retention: retention})
	if err != nil {
		return nil, fmt.Errorf("marshal sweep payload: %w", err)
	}
	return asynq.NewTask(TypeInvitationSweep, payload, asynq.MaxRetry(1), asynq.Timeout(time.Minute)), nil
}
