package export

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestTriggerQueuesNonESignOnCreateOnly(t *testing.T) {
	sub := &Submission{ID: "sub-1", State: StateQueued, Data: []byte(`{"order_type":"engasgava_order"}`)}
	queue := &memQueue{}
	trigger := Trigger{Queue: queue, Orders: &memOrders{}, Log: zap.NewNop()}

	if err := trigger.OnPostSave(context.Background(), sub, false); err != nil {
		t.Fatal(err)
	}
	if len(queue.items) != 1 {
		t.Fatalf("create should enqueue, got %d items", len(queue.items))
	}

	if err := trigger.OnPostSave(context.Background(), sub, true); err != nil {
		t.Fatal(err)
	}
	if len(queue.items) != 1 {
		t.Errorf("update should not enqueue again, got %d items", len(queue.items))
	}
}

func TestTriggerQueuesESignOnSigningProgress(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		update bool
		want   bool
	}{
		{"created but unsigned", StateQueued, false, false},
		{"updated but still unsigned", StateQueued, true, false},
		{"signed", StateSigned, true, true},
		{"signed without bank details", StateMissingBankSigned, true, true},
		{"interest queued", StateMissingBankInterestQueued, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Submission{
				ID:    "sub-1",
				State: tt.state,
				Data:  []byte(`{"order_type":"unhcr_monthly_order_type","assently_case":"abc-123"}`),
			}
			queue := &memQueue{}
			trigger := Trigger{Queue: queue, Orders: &memOrders{}, Log: zap.NewNop()}
			if err := trigger.OnPostSave(context.Background(), sub, tt.update); err != nil {
				t.Fatal(err)
			}
			if got := len(queue.items) == 1; got != tt.want {
				t.Errorf("enqueued = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriggerQueuesPaperSignupRegardlessOfState(t *testing.T) {
	sub := &Submission{
		ID:    "sub-1",
		State: StateQueued,
		Data:  []byte(`{"order_type":"unhcr_monthly_order_type","assently_case":"abc-123"}`),
	}
	queue := &memQueue{}
	orders := &memOrders{orders: map[string]*Order{
		"sub-1": {ID: "55", SubscriptionPaymentType: "paper"},
	}}
	trigger := Trigger{Queue: queue, Orders: orders, Log: zap.NewNop()}

	if err := trigger.OnPostSave(context.Background(), sub, true); err != nil {
		t.Fatal(err)
	}
	if len(queue.items) != 1 {
		t.Errorf("paper signup update should enqueue, got %d items", len(queue.items))
	}
}

func TestTriggerSkipsCompletedSubmission(t *testing.T) {
	sub := &Submission{ID: "sub-1", State: StateCRMSuccess, Data: []byte(`{"order_type":"engasgava_order"}`)}
	queue := &memQueue{}
	trigger := Trigger{Queue: queue, Orders: &memOrders{}, Log: zap.NewNop()}

	if err := trigger.OnPostSave(context.Background(), sub, false); err != nil {
		t.Fatal(err)
	}
	if len(queue.items) != 0 {
		t.Errorf("completed submission should not be enqueued, got %d items", len(queue.items))
	}
}
