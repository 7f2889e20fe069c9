package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWorkOrderFollowUp = "workorders.followup"

type WorkOrderFollowUpPayload struct {
	OrderID string `json:"orderId"`
}

func NewWorkOrderFollowUpTask(payload WorkOrderFollowUpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkOrderFollowUp, data), nil
}

func ParseWorkOrderFollowUpPayload(task *asynq.Task) (WorkOrderFollowUpPayload, error) {
	var payload WorkOrderFollowUpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WorkOrderFollowUpPayload{}, err
	}
	return payload, nil
}
