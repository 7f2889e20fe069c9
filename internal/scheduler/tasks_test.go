package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestWorkOrderFollowUpTaskRoundTrip(t *testing.T) {
	orderID := uuid.New()

	task, err := NewWorkOrderFollowUpTask(WorkOrderFollowUpPayload{OrderID: orderID.String()})
	if err != nil {
		t.Fatalf("NewWorkOrderFollowUpTask: %v", err)
	}
	if task.Type() != TaskWorkOrderFollowUp {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskWorkOrderFollowUp)
	}

	payload, err := ParseWorkOrderFollowUpPayload(task)
	if err != nil {
		t.Fatalf("ParseWorkOrderFollowUpPayload: %v", err)
	}
	if payload.OrderID != orderID.String() {
		t.Fatalf("orderID = %q, want %q", payload.OrderID, orderID)
	}
}

func TestParseWorkOrderFollowUpPayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskWorkOrderFollowUp, []byte("not json"))
	if _, err := ParseWorkOrderFollowUpPayload(task); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
