package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskOutreachDispatch = "outreach.dispatch"

const TaskOutreachRetry = "outreach.retry"

type OutreachDispatchPayload struct {
	AttemptID string `json:"attemptId"`
	TenantID  string `json:"tenantId"`
}

type OutreachRetryPayload struct {
	AttemptID string `json:"attemptId"`
	TenantID  string `json:"tenantId"`
}

func NewOutreachDispatchTask(payload OutreachDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutreachDispatch, data), nil
}

func ParseOutreachDispatchPayload(task *asynq.Task) (OutreachDispatchPayload, error) {
	var payload OutreachDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutreachDispatchPayload{}, err
	}
	return payload, nil
}

func NewOutreachRetryTask(payload OutreachRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutreachRetry, data), nil
}

func ParseOutreachRetryPayload(task *asynq.Task) (OutreachRetryPayload, error) {
	var payload OutreachRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutreachRetryPayload{}, err
	}
	return payload, nil
}
